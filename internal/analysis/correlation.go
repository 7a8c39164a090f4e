package analysis

import (
	"math"

	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/table"
)

type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

// r is the Pearson coefficient clamped to [-1, 1]; degenerate pairs give 0.
func (p *pairAcc) r() float64 {
	if p.n < 2 {
		return 0
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// correlate computes pairwise-complete correlations among numeric columns.
// Fewer than two numeric columns give nil.
func correlate(cols []*table.Column, recs []classify.Classification) *Correlations {
	var idx []int
	for i, c := range recs {
		if c.BaseType == classify.Numeric {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return nil
	}
	n := len(idx)
	vals := make([][]float64, n)
	ok := make([][]bool, n)
	for a, ci := range idx {
		col := cols[ci]
		vals[a] = make([]float64, col.Len())
		ok[a] = make([]bool, col.Len())
		for row, v := range col.Values {
			f, good := table.ToFloat(v)
			if good && !math.IsInf(f, 0) {
				vals[a][row], ok[a][row] = f, true
			}
		}
	}

	out := &Correlations{Columns: make([]string, n), Values: make([][]float64, n)}
	for a := range idx {
		out.Columns[a] = cols[idx[a]].Name
		out.Values[a] = make([]float64, n)
		out.Values[a][a] = 1
	}
	for a := 1; a < n; a++ {
		for b := 0; b < a; b++ {
			var p pairAcc
			for row := range vals[a] {
				if ok[a][row] && ok[b][row] {
					p.add(vals[a][row], vals[b][row])
				}
			}
			r := p.r()
			out.Values[a][b], out.Values[b][a] = r, r
		}
	}
	return out
}
