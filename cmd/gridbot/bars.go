package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evdnx/gotsgrid/types"
)

// loadBars reads a candle CSV with a header row naming
// time|timestamp, open, high, low, close and optionally volume. Rows that
// cannot be parsed are skipped; the result is sorted by time.
func loadBars(path string, interval time.Duration) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readBars(f, interval)
}

func readBars(src io.Reader, interval time.Duration) ([]types.Bar, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var out []types.Bar
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(keys ...string) string {
			for _, k := range keys {
				if i, ok := idx[k]; ok && i < len(rec) {
					if v := strings.TrimSpace(rec[i]); v != "" {
						return v
					}
				}
			}
			return ""
		}
		ts, err := parseTime(get("time", "timestamp"))
		if err != nil {
			continue
		}
		b := types.Bar{OpenTime: ts, CloseTime: ts.Add(interval)}
		ok := true
		for _, fld := range []struct {
			dst *float64
			key string
		}{{&b.Open, "open"}, {&b.High, "high"}, {&b.Low, "low"}, {&b.Close, "close"}} {
			v, err := strconv.ParseFloat(get(fld.key), 64)
			if err != nil {
				ok = false
				break
			}
			*fld.dst = v
		}
		if !ok {
			continue
		}
		b.Volume, _ = strconv.ParseFloat(get("volume", "vol"), 64)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}

// parseTime supports RFC3339 or UNIX seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %q", s)
}
