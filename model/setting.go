package model

// Setting is a location in the world. Present-actor and item sets are
// derived by the world store from actor/item location fields and are not
// stored redundantly on the Setting record itself beyond the metadata
// needed to describe the place.
type Setting struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Connections map[string]Connection `json:"connections,omitempty"`
	Region      string                `json:"region,omitempty"`
	ParentOf    string                `json:"interior_to,omitempty"`
	Keywords    []string              `json:"keywords,omitempty"`
}

// Connection describes travel to a neighboring setting.
type Connection struct {
	ToKey      string `json:"to_key"`
	Travel     string `json:"travel,omitempty"`
	DistanceMs int64  `json:"distance_ms,omitempty"`
}
