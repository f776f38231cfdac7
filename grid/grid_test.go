package grid

import (
	"testing"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/types"
)

func open(t *testing.T, side types.Direction, prices ...float64) *basket.Basket {
	t.Helper()
	b := basket.New(side)
	for _, p := range prices {
		if err := b.AddSlice(1, p); err != nil {
			t.Fatalf("AddSlice: %v", err)
		}
	}
	return b
}

func TestAverageDownLong(t *testing.T) {
	p := Policy{Mode: AverageDown, GridMultiplier: 2, MaxAverageOrders: 5}
	b := open(t, types.Long, 100)

	if d := p.ShouldAdd(b.Snapshot(), 97, 1.5); !d.Add {
		t.Fatalf("price 97 <= 100-3 should fire, got %+v", d)
	}
	if d := p.ShouldAdd(b.Snapshot(), 97.5, 1.5); d.Add {
		t.Fatalf("price 97.5 is above the level, got %+v", d)
	}
}

func TestAverageDownShortAndAverageUp(t *testing.T) {
	down := Policy{Mode: AverageDown, GridMultiplier: 1, MaxAverageOrders: 5}
	up := Policy{Mode: AverageUp, GridMultiplier: 1, MaxAverageOrders: 5}

	short := open(t, types.Short, 100, 102)
	if d := down.ShouldAdd(short.Snapshot(), 104, 2); !d.Add || d.Level != 104 {
		t.Fatalf("short average-down should fire at 102+2, got %+v", d)
	}
	long := open(t, types.Long, 100, 102)
	if d := up.ShouldAdd(long.Snapshot(), 103.9, 2); d.Add {
		t.Fatalf("long average-up needs 104, got %+v", d)
	}
	if d := up.ShouldAdd(long.Snapshot(), 104, 2); !d.Add {
		t.Fatalf("long average-up should fire at 104, got %+v", d)
	}
	shortUp := open(t, types.Short, 100, 98)
	if d := up.ShouldAdd(shortUp.Snapshot(), 96, 2); !d.Add {
		t.Fatalf("short average-up should fire at 98-2, got %+v", d)
	}
}

func TestNeverFires(t *testing.T) {
	b := open(t, types.Long, 100, 95, 90)
	cases := []struct {
		name string
		p    Policy
		atr  float64
	}{
		{"mode none", Policy{Mode: None, GridMultiplier: 1, MaxAverageOrders: 10}, 1},
		{"max orders", Policy{Mode: AverageDown, GridMultiplier: 1, MaxAverageOrders: 3}, 1},
		{"atr unformed", Policy{Mode: AverageDown, GridMultiplier: 1, MaxAverageOrders: 10}, 0},
		{"zero multiplier", Policy{Mode: AverageDown, GridMultiplier: 0, MaxAverageOrders: 10}, 1},
	}
	for _, c := range cases {
		if d := c.p.ShouldAdd(b.Snapshot(), 1, c.atr); d.Add {
			t.Fatalf("%s: expected no add, got %+v", c.name, d)
		}
	}
}

func TestNoRepeatAtSameExtreme(t *testing.T) {
	p := Policy{Mode: AverageDown, GridMultiplier: 1, MaxAverageOrders: 10}
	b := open(t, types.Long, 100)

	d := p.ShouldAdd(b.Snapshot(), 99, 1)
	if !d.Add {
		t.Fatalf("expected first add at 99, got %+v", d)
	}
	if err := b.AddSlice(1, 99); err != nil {
		t.Fatal(err)
	}
	// Same price, next tick: the extreme moved to 99 so the level is now 98.
	if d := p.ShouldAdd(b.Snapshot(), 99, 1); d.Add {
		t.Fatalf("same extreme must not fire twice, got %+v", d)
	}
	if d := p.ShouldAdd(b.Snapshot(), 98.5, 1); d.Add {
		t.Fatalf("less than a full spacing further must not fire, got %+v", d)
	}
	if d := p.ShouldAdd(b.Snapshot(), 98, 1); !d.Add {
		t.Fatalf("a full spacing further should fire, got %+v", d)
	}
}
