package memsampler

import (
	"errors"
	"testing"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Options
		wantError bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  Options{DurationSeconds: 30},
		},
		{
			name:  "full option set",
			input: "analysis=memory,duration=60,output=/tmp/out.log",
			want:  Options{Analysis: "memory", DurationSeconds: 60, Output: "/tmp/out.log"},
		},
		{
			name:  "unknown keys ignored",
			input: "analysis=all,verbose=true,color=red",
			want:  Options{Analysis: "all", DurationSeconds: 30},
		},
		{
			name:  "trailing pair without equals ignored",
			input: "analysis=memory,garbage",
			want:  Options{Analysis: "memory", DurationSeconds: 30},
		},
		{
			name:      "malformed duration keeps default and other keys apply",
			input:     "duration=abc,analysis=memory,output=/tmp/x.log",
			want:      Options{Analysis: "memory", DurationSeconds: 30, Output: "/tmp/x.log"},
			wantError: true,
		},
		{
			name:      "malformed duration alone",
			input:     "duration=12.5",
			want:      Options{DurationSeconds: 30},
			wantError: true,
		},
		{
			name:  "negative duration parsed as-is",
			input: "duration=-5",
			want:  Options{DurationSeconds: -5},
		},
		{
			name:  "later key wins",
			input: "analysis=memory,analysis=all",
			want:  Options{Analysis: "all", DurationSeconds: 30},
		},
		{
			name:  "empty value accepted",
			input: "analysis=",
			want:  Options{DurationSeconds: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.input)
			if tt.wantError {
				if !errors.Is(err, ErrInvalidOption) {
					t.Errorf("expected ErrInvalidOption, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseOptions(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSamplingEnabled(t *testing.T) {
	tests := []struct {
		analysis string
		want     bool
	}{
		{"memory", true},
		{"all", true},
		{"", false},
		{"thread", false},
		{"Memory", false},
	}
	for _, tt := range tests {
		o := Options{Analysis: tt.analysis}
		if got := o.samplingEnabled(); got != tt.want {
			t.Errorf("samplingEnabled(%q) = %v, want %v", tt.analysis, got, tt.want)
		}
	}
}
