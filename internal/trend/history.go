package trend

import (
	"sort"
	"time"
)

type sample struct {
	at    time.Time
	value float64
}

// history is a time-ordered sample series. Timestamps never decrease;
// equal timestamps are kept as independent samples.
type history []sample

// insert places s after every sample with a timestamp <= s.at, which is an
// append for in-order writes.
func (h history) insert(s sample) history {
	i := sort.Search(len(h), func(i int) bool { return h[i].at.After(s.at) })
	if i == len(h) {
		return append(h, s)
	}
	h = append(h, sample{})
	copy(h[i+1:], h[i:])
	h[i] = s
	return h
}

// prune drops samples older than cutoff. Samples at exactly cutoff survive.
func (h history) prune(cutoff time.Time) history {
	i := sort.Search(len(h), func(i int) bool { return !h[i].at.Before(cutoff) })
	if i == 0 {
		return h
	}
	return append(h[:0:0], h[i:]...)
}

// retained returns the view of h that is inside the retention window at now.
func (h history) retained(cutoff time.Time) history {
	i := sort.Search(len(h), func(i int) bool { return !h[i].at.Before(cutoff) })
	return h[i:]
}

// latestBefore returns the most recent sample strictly older than cutoff.
func (h history) latestBefore(cutoff time.Time) (sample, bool) {
	i := sort.Search(len(h), func(i int) bool { return !h[i].at.Before(cutoff) })
	if i == 0 {
		return sample{}, false
	}
	return h[i-1], true
}

// valuesAfter returns the values of samples strictly newer than cutoff.
func (h history) valuesAfter(cutoff time.Time) []float64 {
	i := sort.Search(len(h), func(i int) bool { return h[i].at.After(cutoff) })
	out := make([]float64, 0, len(h)-i)
	for _, s := range h[i:] {
		out = append(out, s.value)
	}
	return out
}

func (h history) values() []float64 {
	out := make([]float64, len(h))
	for i, s := range h {
		out[i] = s.value
	}
	return out
}

func (h history) last() sample {
	return h[len(h)-1]
}
