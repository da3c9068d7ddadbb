package effects

import (
	"math"
	"testing"
)

func TestSaturatorDefaultsPassThrough(t *testing.T) {
	s := NewSaturator()

	for _, x := range []float64{-1, -0.5, 0, 0.25, 1} {
		if got := s.ProcessSample(x); got != x {
			t.Errorf("ProcessSample(%v) = %v, want exact pass-through", x, got)
		}
	}
}

func TestSaturatorSetDrive(t *testing.T) {
	s := NewSaturator()

	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"valid 1", 1, false},
		{"valid 10", 10, false},
		{"valid max", 100, false},
		{"too small", 0.001, true},
		{"too large", 1000, true},
		{"NaN", math.NaN(), true},
		{"Inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SetDrive(tt.value); (err != nil) != tt.wantErr {
				t.Errorf("SetDrive(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSaturatorSetMix(t *testing.T) {
	s := NewSaturator()

	if err := s.SetMix(0.5); err != nil {
		t.Fatalf("SetMix(0.5) error = %v", err)
	}

	if err := s.SetMix(1.5); err == nil {
		t.Error("SetMix(1.5) expected error")
	}

	if err := s.SetMix(-0.1); err == nil {
		t.Error("SetMix(-0.1) expected error")
	}
}

func TestSaturatorFullScalePreserved(t *testing.T) {
	s := NewSaturator()
	if err := s.SetDrive(10); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMix(1); err != nil {
		t.Fatal(err)
	}

	// The normalized shaper maps +/-1 to +/-1 (within rounding).
	if got := s.ProcessSample(1); math.Abs(got-1) > 1e-6 {
		t.Errorf("ProcessSample(1) = %v, want 1", got)
	}

	if got := s.ProcessSample(-1); math.Abs(got+1) > 1e-6 {
		t.Errorf("ProcessSample(-1) = %v, want -1", got)
	}
}

func TestSaturatorCompresses(t *testing.T) {
	s := NewSaturator()
	_ = s.SetDrive(10)
	_ = s.SetMix(1)

	// Mid-level input is pushed toward full scale, small input gains more
	// than large input loses: the classic soft-clip curve.
	mid := s.ProcessSample(0.3)
	if mid <= 0.3 || mid > 1 {
		t.Errorf("ProcessSample(0.3) = %v, want in (0.3, 1]", mid)
	}

	if out := s.ProcessSample(-0.3); math.Abs(out+mid) > 1e-12 {
		t.Errorf("shaper not odd-symmetric: f(0.3)=%v, f(-0.3)=%v", mid, out)
	}
}

func TestSaturatorProcessInPlace(t *testing.T) {
	s := NewSaturator()
	_ = s.SetDrive(5)
	_ = s.SetMix(0.7)

	buf := []float64{-0.8, -0.2, 0, 0.2, 0.8}
	want := make([]float64, len(buf))
	for i, x := range buf {
		want[i] = s.ProcessSample(x)
	}

	s.ProcessInPlace(buf)

	for i := range buf {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: got %v, want %v", i, buf[i], want[i])
		}
	}
}
