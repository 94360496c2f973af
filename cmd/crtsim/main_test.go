package main

import "testing"

func TestNewRootCmd_FlagDefaults(t *testing.T) {
	root := newRootCmd()

	tests := []struct {
		cmd  string
		flag string
		got  func() any
		want any
	}{
		{"tune", "steps", func() any { return tuneSteps }, 21},
		{"sweep", "steps", func() any { return sweepSteps }, 9},
		{"live", "steps", func() any { return liveSteps }, 2},
		{"serve", "steps", func() any { return serveSteps }, 2},
		{"tune", "min", func() any { return tuneLo }, -2e-9},
		{"sweep", "max", func() any { return sweepHi }, 2e-9},
	}

	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.cmd})
			if err != nil {
				t.Fatal(err)
			}
			if cmd.Flags().Lookup(tt.flag) == nil {
				t.Fatalf("expected --%s on %s", tt.flag, tt.cmd)
			}
			if got := tt.got(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewRootCmd_TuneStepsParsed(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"tune"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags([]string{"--steps", "5"}); err != nil {
		t.Fatal(err)
	}
	if tuneSteps != 5 {
		t.Errorf("expected tune steps 5, got %d", tuneSteps)
	}
	if sweepSteps != 9 {
		t.Errorf("expected sweep steps to stay 9, got %d", sweepSteps)
	}
}
