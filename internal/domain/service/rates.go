package service

import (
	"sort"

	"ratecast/internal/domain/model"
)

func CrossRate(basePrice, price float64) float64 {
	// no zero guard: a zero price yields +Inf
	return basePrice / price
}

// SortDedup sorts points by timestamp (stable) and keeps the first point at each
// distinct timestamp. The input slice is not modified.
func SortDedup(points []model.RatePoint) []model.RatePoint {
	sorted := make([]model.RatePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p.Timestamp == sorted[i-1].Timestamp {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MergeSorted merges two timestamp-ordered slices. On equal timestamps the
// entries of history come first.
func MergeSorted(history, batch []model.RatePoint) []model.RatePoint {
	if len(history) == 0 || len(batch) == 0 || history[len(history)-1].Timestamp <= batch[0].Timestamp {
		return append(history, batch...)
	}

	out := make([]model.RatePoint, 0, len(history)+len(batch))
	i, j := 0, 0
	for i < len(history) && j < len(batch) {
		if batch[j].Timestamp < history[i].Timestamp {
			out = append(out, batch[j])
			j++
			continue
		}
		out = append(out, history[i])
		i++
	}
	out = append(out, history[i:]...)
	return append(out, batch[j:]...)
}

// HourlyAverage divides the sum over the whole history by the number of
// entries at or after sinceMs. Zero recent entries yields a non-finite result.
func HourlyAverage(history []model.RatePoint, sinceMs int64) float64 {
	var sum float64
	var recent int
	for _, p := range history {
		sum += p.Rate
		if p.Timestamp >= sinceMs {
			recent++
		}
	}
	return sum / float64(recent)
}
