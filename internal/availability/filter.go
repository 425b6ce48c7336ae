package availability

import "fmt"

// Filter is the global display preference that narrows which bike
// categories a user wants to see. Filtering only ever zeroes out excluded
// categories; it never fabricates counts, and empty spaces always pass
// through untouched.
type Filter string

const (
	FilterBoth      Filter = "both"
	FilterBikesOnly Filter = "bikes"
	FilterEBikes    Filter = "ebikes"
)

// ParseFilter validates a filter name coming from a query parameter or the
// preference store.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterBoth, FilterBikesOnly, FilterEBikes:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown availability filter %q", s)
}

// Counts holds the raw availability figures of a dock.
type Counts struct {
	StandardBikes int `json:"standard_bikes"`
	EBikes        int `json:"ebikes"`
	EmptySpaces   int `json:"empty_spaces"`
}

// Apply maps raw counts through the filter. FilterBoth is the identity,
// FilterBikesOnly zeroes e-bikes, FilterEBikes zeroes standard bikes.
func (f Filter) Apply(c Counts) Counts {
	switch f {
	case FilterBikesOnly:
		c.EBikes = 0
	case FilterEBikes:
		c.StandardBikes = 0
	}
	return c
}

// TotalBikes is the post-filter bike count of any kind.
func (c Counts) TotalBikes() int {
	return c.StandardBikes + c.EBikes
}

// HasAnyBikes reports whether at least one bike survives the filter.
func (c Counts) HasAnyBikes() bool {
	return c.TotalBikes() > 0
}

// HasAnyAvailability reports whether the dock offers anything at all,
// either a bike to take or a space to return one.
func (c Counts) HasAnyAvailability() bool {
	return c.TotalBikes()+c.EmptySpaces > 0
}
