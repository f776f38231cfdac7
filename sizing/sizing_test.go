package sizing

import (
	"errors"
	"testing"

	"github.com/evdnx/gotsgrid/config"
)

func buildPolicy(mode Mode) Policy {
	cfg := config.Default()
	cfg.SizingMode = string(mode)
	cfg.BaseVolume = 0.01
	cfg.MartingaleMultiplier = 2
	cfg.MaxSteps = 3
	cfg.VolumeStep = 0.01
	cfg.MinVolume = 0.01
	return NewPolicy(cfg)
}

func TestMultiplyScenario(t *testing.T) {
	p := buildPolicy(Multiply)
	s := p.Initial()

	want := []float64{0.02, 0.04, 0.08}
	for i, loss := range []float64{-5, -7, -3} {
		s = p.Adjust(s, loss)
		if s.CurrentVolume != want[i] {
			t.Fatalf("after loss %d expected %v, got %v", i+1, want[i], s.CurrentVolume)
		}
		if s.Step != i+1 {
			t.Fatalf("after loss %d expected step %d, got %d", i+1, i+1, s.Step)
		}
		if s.LastResult != loss {
			t.Fatalf("expected last result %v, got %v", loss, s.LastResult)
		}
	}
	s = p.Adjust(s, 2)
	if s.CurrentVolume != 0.01 || s.Step != 0 {
		t.Fatalf("expected reset to 0.01/step 0 after a win, got %v/%d", s.CurrentVolume, s.Step)
	}
}

func TestMaxStepsHoldsVolume(t *testing.T) {
	p := buildPolicy(Multiply)
	s := p.Initial()
	for i := 0; i < 3; i++ {
		s = p.Adjust(s, -1)
	}
	capped := s.CurrentVolume
	s = p.Adjust(s, -1)
	if s.Step != 3 {
		t.Fatalf("step must stay bounded by MaxSteps, got %d", s.Step)
	}
	if s.CurrentVolume != capped {
		t.Fatalf("volume must hold at %v once MaxSteps is reached, got %v", capped, s.CurrentVolume)
	}
}

func TestMonotonicAfterLoss(t *testing.T) {
	for _, mode := range []Mode{Linear, Multiply, Fibonacci} {
		p := buildPolicy(mode)
		p.MaxSteps = 0
		s := p.Initial()
		for i := 0; i < 6; i++ {
			prev := s.CurrentVolume
			s = p.Adjust(s, -1)
			if !(s.CurrentVolume > prev) {
				t.Fatalf("%s: loss %d did not grow volume (%v -> %v)", mode, i+1, prev, s.CurrentVolume)
			}
		}
		s = p.Adjust(s, 0)
		if s.CurrentVolume != 0.01 {
			t.Fatalf("%s: break-even result must reset to base, got %v", mode, s.CurrentVolume)
		}
	}
}

func TestMonotonicClampedByMaxVolume(t *testing.T) {
	p := buildPolicy(Multiply)
	p.MaxSteps = 0
	p.MaxVolume = 0.05
	s := p.Initial()
	var vols []float64
	for i := 0; i < 4; i++ {
		s = p.Adjust(s, -1)
		vols = append(vols, s.CurrentVolume)
	}
	want := []float64{0.02, 0.04, 0.05, 0.05}
	for i := range want {
		if vols[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, vols)
		}
	}
}

func TestLinearAndFibonacciSequences(t *testing.T) {
	lin := buildPolicy(Linear)
	lin.MaxSteps = 0
	fib := buildPolicy(Fibonacci)
	fib.MaxSteps = 0
	ls, fs := lin.Initial(), fib.Initial()
	wantLin := []float64{0.02, 0.03, 0.04, 0.05}
	wantFib := []float64{0.02, 0.03, 0.05, 0.08}
	for i := range wantLin {
		ls = lin.Adjust(ls, -1)
		fs = fib.Adjust(fs, -1)
		if ls.CurrentVolume != wantLin[i] {
			t.Fatalf("linear step %d: expected %v, got %v", i+1, wantLin[i], ls.CurrentVolume)
		}
		if fs.CurrentVolume != wantFib[i] {
			t.Fatalf("fibonacci step %d: expected %v, got %v", i+1, wantFib[i], fs.CurrentVolume)
		}
	}
}

func TestConstantEntryUsesEquity(t *testing.T) {
	p := buildPolicy(Constant)
	p.MaxRiskPerTrade = 0.01
	p.StopDistance = 0.5
	// $10k * 1% = $100 at risk, $0.5 per unit => 200 units.
	v, err := p.EntryVolume(p.Initial(), 10_000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 200 {
		t.Fatalf("expected 200, got %v", v)
	}
	// Losses never escalate constant sizing.
	s := p.Adjust(p.Initial(), -50)
	if v2, _ := p.EntryVolume(s, 10_000, 100); v2 != 200 {
		t.Fatalf("constant mode must not escalate, got %v", v2)
	}
	// Equity is re-read on every flat start.
	if v3, _ := p.EntryVolume(s, 5_000, 100); v3 != 100 {
		t.Fatalf("expected 100 with half the equity, got %v", v3)
	}
}

func TestEntryVolumeUnderflow(t *testing.T) {
	p := buildPolicy(Constant)
	p.MinVolume = 0
	p.MaxRiskPerTrade = 0.0001
	p.StopDistance = 50
	_, err := p.EntryVolume(p.Initial(), 100, 1000)
	if !errors.Is(err, ErrSizingUnderflow) {
		t.Fatalf("expected ErrSizingUnderflow, got %v", err)
	}
}

func TestSliceVolume(t *testing.T) {
	p := buildPolicy(Multiply)
	p.AveragingMultiplier = 1.5
	p.LotIncrement = 0.01
	cases := []struct {
		index int
		want  float64
	}{
		{0, 0.04},
		{1, 0.07}, // 0.06 + 0.01
		{2, 0.11}, // 0.09 + 0.02
	}
	for _, c := range cases {
		v, err := p.SliceVolume(0.04, c.index)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != c.want {
			t.Fatalf("slice %d: expected %v, got %v", c.index, c.want, v)
		}
	}
}
