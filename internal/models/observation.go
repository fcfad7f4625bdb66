package models

import (
	"sort"
	"time"
)

// Observation is a single historical statistic value for an entity
type Observation struct {
	Date  time.Time `db:"game_date" json:"date"`
	Value float64   `db:"value" json:"value"`
}

// History is a chronologically ordered sequence of observations (oldest first)
type History []Observation

// Values returns the statistic values in order
func (h History) Values() []float64 {
	out := make([]float64, len(h))
	for i, o := range h {
		out[i] = o.Value
	}
	return out
}

// Latest returns the most recent observation, or the zero value for an empty history
func (h History) Latest() Observation {
	if len(h) == 0 {
		return Observation{}
	}
	return h[len(h)-1]
}

// IsSorted reports whether the history is in ascending date order
func (h History) IsSorted() bool {
	return sort.SliceIsSorted(h, func(i, j int) bool { return h[i].Date.Before(h[j].Date) })
}

// Sorted returns a copy of the history in ascending date order. The receiver is not modified.
func (h History) Sorted() History {
	out := make(History, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Before returns the observations strictly before t
func (h History) Before(t time.Time) History {
	idx := sort.Search(len(h), func(i int) bool { return !h[i].Date.Before(t) })
	return h[:idx]
}
