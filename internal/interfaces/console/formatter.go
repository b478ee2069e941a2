package console

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"ratecast/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// Formatter renders one line per publish, colouring each pair by the move
// of its latest rate since the previous line.
type Formatter struct {
	mu   sync.Mutex
	last map[model.CurrencyPair]float64
}

func NewFormatter() *Formatter {
	return &Formatter{last: make(map[model.CurrencyPair]float64)}
}

func (f *Formatter) Render(snaps *model.Snapshots) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(colorize("[RATECAST] ", ansiDim))

	for i, pair := range snaps.Pairs() {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		ps, _ := snaps.Get(pair)

		rate := "--"
		col := ansiYellow
		if n := len(ps.Rates); n > 0 {
			latest := ps.Rates[n-1].Rate
			rate = formatRate(latest)
			if prev, ok := f.last[pair]; ok {
				switch {
				case latest > prev:
					col = ansiGreen
				case latest < prev:
					col = ansiRed
				}
			}
			f.last[pair] = latest
		}

		avg := "avg=--"
		if ps.HasAverage() {
			avg = "avg=" + formatRate(ps.HourlyAverage)
		}

		sb.WriteString(string(pair))
		sb.WriteString(" ")
		sb.WriteString(colorize(rate, col))
		sb.WriteString(" ")
		sb.WriteString(colorize(avg, ansiDim))
	}

	sb.WriteString(ansiClearEOL)
	return sb.String()
}

// formatRate keeps six significant decimals for sub-unit rates.
func formatRate(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "--"
	}
	if math.Abs(v) < 1 {
		return fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
