package models

// Favourite is a user-chosen dock tracked for quick access and automatic
// refresh. SortOrder controls presentation order across surfaces; Alias, if
// set, overrides the operator name wherever the dock is displayed.
type Favourite struct {
	DockID    string `json:"dock_id"`
	SortOrder int    `json:"sort_order"`
	Alias     string `json:"alias,omitempty"`
}

// AlternativeDock is a nearby dock suggested when a primary dock of
// interest lacks availability. It is recomputed on demand and never
// persisted.
type AlternativeDock struct {
	Dock           Dock    `json:"dock"`
	DistanceMeters float64 `json:"distance_meters"`
	DisplayName    string  `json:"display_name"`
}
