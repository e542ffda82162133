package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "download") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "download", true},
		{3, "download", false},
		{10, "download", true},
		{19.9, "download", false},
		{20, " download ", true},
		{20, "verify", true},
		{5, "verify", false},
		{30, "verify", true},
		{100, "verify", true},
		{140, "verify", false},
		{-1, "verify", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v%%, %q): ShouldLog = %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "download") {
		t.Error("first phase should log even with unknown percent")
	}
	if s.ShouldLog(-1, "download") {
		t.Error("unknown percent should not trigger bucket logging")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "download")
	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state: phase=%q bucket=%d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "download") {
		t.Error("should log after reset")
	}
}
