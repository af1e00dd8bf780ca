package introspect

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Process introspects an arbitrary OS process through gopsutil. Resident
// set size stands in for used heap, virtual size for committed, and machine
// memory for the upper bound. The implementation deliberately does not
// satisfy GCNotifier: collection events cannot be observed from outside the
// target runtime, which exercises the degraded capability path.
type Process struct {
	proc *process.Process
}

// NewProcess returns an introspector over the process with the given pid.
func NewProcess(pid int32) (*Process, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &Process{proc: p}, nil
}

// BindCurrentThread verifies the target process is still alive. There is no
// per-thread attachment for out-of-process sampling.
func (p *Process) BindCurrentThread() error {
	running, err := p.proc.IsRunning()
	if err != nil {
		return fmt.Errorf("check process %d: %w", p.proc.Pid, err)
	}
	if !running {
		return fmt.Errorf("process %d is not running", p.proc.Pid)
	}
	return nil
}

// UnbindCurrentThread is a no-op for out-of-process sampling.
func (p *Process) UnbindCurrentThread() {}

// HeapUsage reports RSS, VMS and total machine memory for the target.
func (p *Process) HeapUsage() (HeapUsage, error) {
	mi, err := p.proc.MemoryInfo()
	if err != nil {
		return HeapUsage{}, fmt.Errorf("memory info for pid %d: %w", p.proc.Pid, err)
	}

	var max int64 = -1
	if vm, err := mem.VirtualMemory(); err == nil {
		max = int64(vm.Total)
	}

	return HeapUsage{
		Used:      int64(mi.RSS),
		Committed: int64(mi.VMS),
		Max:       max,
	}, nil
}

// PoolUsage reports the target's memory-mapped regions, grouped by mapping.
func (p *Process) PoolUsage() ([]PoolUsage, error) {
	maps, err := p.proc.MemoryMaps(false)
	if err != nil {
		return nil, fmt.Errorf("memory maps for pid %d: %w", p.proc.Pid, err)
	}

	pools := make([]PoolUsage, 0, len(*maps))
	for _, m := range *maps {
		name := m.Path
		if name == "" {
			name = "anonymous"
		}
		pools = append(pools, PoolUsage{
			Name: name,
			Used: int64(m.Rss),
			Max:  int64(m.Size),
		})
	}
	return pools, nil
}
