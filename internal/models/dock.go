package models

import "encoding/xml"

// DockFeed represents the root XML element of the upstream dock feed.
// LastUpdate is the feed generation time in Unix milliseconds, as reported
// by the operator.
type DockFeed struct {
	XMLName    xml.Name `xml:"stations"`
	LastUpdate int64    `xml:"lastUpdate,attr"`
	Version    string   `xml:"version,attr"`
	Docks      []Dock   `xml:"station"`
}

// Dock is a single docking station as reported by the upstream feed.
// Counts are live values and may momentarily disagree with NbDocks; see
// BrokenDocks for the reconciliation heuristic.
type Dock struct {
	ID              string  `xml:"id" json:"id"`
	Name            string  `xml:"name" json:"name"`
	Lat             float64 `xml:"lat" json:"lat"`
	Lon             float64 `xml:"long" json:"lon"`
	Installed       bool    `xml:"installed" json:"installed"`
	Locked          bool    `xml:"locked" json:"locked"`
	NbStandardBikes int     `xml:"nbStandardBikes" json:"standard_bikes"`
	NbEBikes        int     `xml:"nbEBikes" json:"ebikes"`
	NbEmptyDocks    int     `xml:"nbEmptyDocks" json:"empty_docks"`
	NbDocks         int     `xml:"nbDocks" json:"total_docks"`

	// Alias is a user-defined display name override. It is never present in
	// the upstream feed; it is resolved from the preference store.
	Alias string `xml:"-" json:"alias,omitempty"`
}

// TotalBikes returns the number of bikes of any kind currently docked.
func (d *Dock) TotalBikes() int {
	return d.NbStandardBikes + d.NbEBikes
}

// IsAvailable reports whether the dock can currently be used at all.
// A dock that is not installed, or is locked by the operator, is excluded
// from alternative suggestions.
func (d *Dock) IsAvailable() bool {
	return d.Installed && !d.Locked
}

// BrokenDocks estimates the number of out-of-service docking points by
// reconciling the reported total against live bike and space counts.
//
// This assumes the operator reports NbDocks as the physical total and that
// every working point is either occupied or empty. If the upstream
// accounting changes, this estimate silently degrades; it is a display
// heuristic, not an authoritative figure.
func (d *Dock) BrokenDocks() int {
	broken := d.NbDocks - (d.TotalBikes() + d.NbEmptyDocks)
	if broken < 0 {
		return 0
	}
	return broken
}

// DisplayName returns the name to show for the dock: the user alias when
// one is set, otherwise the operator name.
func (d *Dock) DisplayName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Name
}
