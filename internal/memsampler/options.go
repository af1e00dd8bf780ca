package memsampler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultDurationSeconds applies when no valid duration option is given.
const DefaultDurationSeconds = 30

// ErrInvalidOption marks a recoverable option parse failure. The rest of
// the option string is still consumed and the failed key keeps its default.
var ErrInvalidOption = errors.New("invalid option value")

// Options is the parsed attach configuration.
type Options struct {
	// Analysis selects what the sampling loop collects. Only "memory" and
	// "all" enable heap/pool sampling; anything else leaves the session
	// running but emitting identity lines only.
	Analysis string

	// DurationSeconds bounds the sampling loop's wall-clock runtime.
	DurationSeconds int

	// Output is the report file path. Empty means a temporary path will be
	// assigned at attach time.
	Output string
}

// ParseOptions parses a comma-separated key=value option string. Unknown
// keys and pairs without "=" are ignored. A malformed duration yields an
// ErrInvalidOption-wrapped error alongside otherwise fully applied options;
// callers log it and proceed.
func ParseOptions(s string) (Options, error) {
	opts := Options{DurationSeconds: DefaultDurationSeconds}
	var parseErr error

	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch key {
		case "analysis":
			opts.Analysis = value
		case "duration":
			secs, err := strconv.Atoi(value)
			if err != nil {
				parseErr = fmt.Errorf("%w: duration %q", ErrInvalidOption, value)
				continue
			}
			opts.DurationSeconds = secs
		case "output":
			opts.Output = value
		}
	}

	return opts, parseErr
}

// samplingEnabled reports whether the analysis kind includes memory
// sampling.
func (o Options) samplingEnabled() bool {
	return o.Analysis == "memory" || o.Analysis == "all"
}
