package main

import (
	"fmt"
	"io"

	"github.com/evdnx/gotsgrid/engine"
	"github.com/evdnx/gotsgrid/journal"
	"github.com/olekukonko/tablewriter"
)

// tally accumulates what the engine reported over a run.
type tally struct {
	bars      int
	entries   int
	averages  int
	exits     map[string]int
	wins      int
	losses    int
	net       float64
	diagnosed int
}

func newTally() *tally { return &tally{exits: map[string]int{}} }

func (t *tally) add(rep engine.Report) {
	t.bars++
	t.diagnosed += len(rep.Diagnostics)
	for _, ev := range rep.Events {
		switch ev.Kind {
		case engine.EventEntry:
			t.entries++
		case engine.EventAverage:
			t.averages++
		case engine.EventExit:
			t.exits[ev.Reason]++
			t.net += ev.PnL
			if ev.PnL >= 0 {
				t.wins++
			} else {
				t.losses++
			}
		}
	}
}

func (t *tally) render(w io.Writer, symbol string, equity float64) {
	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Bars", "Baskets", "Slices added", "Wins", "Losses", "Net PnL", "Equity", "Diagnostics")
	table.Append(
		symbol,
		fmt.Sprint(t.bars),
		fmt.Sprint(t.entries),
		fmt.Sprint(t.averages),
		fmt.Sprint(t.wins),
		fmt.Sprint(t.losses),
		fmt.Sprintf("%.4f", t.net),
		fmt.Sprintf("%.2f", equity),
		fmt.Sprint(t.diagnosed),
	)
	table.Render()

	if len(t.exits) == 0 {
		return
	}
	reasons := tablewriter.NewWriter(w)
	reasons.Header("Exit reason", "Count")
	for _, r := range []string{engine.ReasonStopLoss, engine.ReasonTakeProfit, engine.ReasonBreakEven, engine.ReasonTrailingStop} {
		if n := t.exits[r]; n > 0 {
			reasons.Append(r, fmt.Sprint(n))
		}
	}
	reasons.Render()
}

func renderHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.Header("Basket", "Side", "Slices", "Volume", "Avg", "Exit", "Reason", "PnL")
	for _, e := range entries {
		id := e.BasketID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append(
			id,
			string(e.Side),
			fmt.Sprint(len(e.Slices)),
			fmt.Sprintf("%.4f", e.TotalVolume),
			fmt.Sprintf("%.5f", e.AveragePrice),
			fmt.Sprintf("%.5f", e.ExitPrice),
			e.Reason,
			fmt.Sprintf("%.4f", e.PnL),
		)
	}
	table.Render()
}
