package strategy

// priceBuffer keeps the most recent closes so the gate can fall back to a
// plain trend read while the indicator suite is still warming up.
type priceBuffer struct {
	max int
	buf []float64
}

func newPriceBuffer(max int) *priceBuffer {
	if max <= 0 {
		max = 16
	}
	return &priceBuffer{max: max, buf: make([]float64, 0, max)}
}

func (p *priceBuffer) Add(v float64) {
	if len(p.buf) == p.max {
		copy(p.buf, p.buf[1:])
		p.buf = p.buf[:p.max-1]
	}
	p.buf = append(p.buf, v)
}

func (p *priceBuffer) Len() int { return len(p.buf) }

// window returns at most n+1 trailing closes, i.e. n consecutive moves.
func (p *priceBuffer) window(n int) []float64 {
	if n >= len(p.buf) {
		return p.buf
	}
	return p.buf[len(p.buf)-n-1:]
}

// Trend scores the last six moves: +1 when clearly rising, -1 when clearly
// falling, 0 otherwise.
func (p *priceBuffer) Trend() int {
	w := p.window(6)
	if len(w) < 2 {
		return 0
	}
	score := 0
	for i := 1; i < len(w); i++ {
		if w[i] > w[i-1] {
			score++
		} else if w[i] < w[i-1] {
			score--
		}
	}
	threshold := max((len(w)-1)/3, 2)
	switch {
	case score >= threshold:
		return 1
	case score <= -threshold:
		return -1
	}
	return 0
}

// Slope is the least-squares slope over the last eight moves.
func (p *priceBuffer) Slope() float64 {
	w := p.window(8)
	n := float64(len(w))
	if n < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, y := range w {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// Direction combines Trend and Slope; it needs at least three closes.
func (p *priceBuffer) Direction() int {
	if p.Len() < 3 {
		return 0
	}
	t, s := p.Trend(), p.Slope()
	switch {
	case t > 0 && s > 0:
		return 1
	case t < 0 && s < 0:
		return -1
	}
	return 0
}
