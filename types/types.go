package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the side that offsets s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Direction is the side of a basket (all slices share it).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// EntrySide is the order side that grows a basket of direction d.
func (d Direction) EntrySide() Side {
	if d == Short {
		return Sell
	}
	return Buy
}

// ExitSide is the order side that liquidates a basket of direction d.
func (d Direction) ExitSide() Side {
	return d.EntrySide().Opposite()
}

// Trigger is the directional output of a signal gate for one tick.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerLong
	TriggerShort
)

func (t Trigger) String() string {
	switch t {
	case TriggerLong:
		return "long"
	case TriggerShort:
		return "short"
	default:
		return "none"
	}
}

// Matches reports whether the trigger asks for a basket of direction d.
func (t Trigger) Matches(d Direction) bool {
	return (t == TriggerLong && d == Long) || (t == TriggerShort && d == Short)
}

// Bar is one closed candle.
type Bar struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

type Order struct {
	ID     string
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // reference price; market orders only
	// meta
	Comment string
}

// Fill is the venue acknowledgement of an order. Pending fills have not
// executed yet and must be confirmed later through the engine.
type Fill struct {
	OrderID string
	Side    Side
	Qty     float64
	Price   float64
	Pending bool
}
