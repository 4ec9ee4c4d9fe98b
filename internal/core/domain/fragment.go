package domain

// Fragment is one raw recognized unit as delivered by the recognition
// backend, before classification. Category, severity and department are
// optional explicit values the backend may already have resolved.
type Fragment struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox []float64   `json:"bounding_box,omitempty"`
	Category    string      `json:"category,omitempty"`
	Severity    string      `json:"severity,omitempty"`
	Department  string      `json:"department,omitempty"`
	Location    string      `json:"location,omitempty"`
	IsTable     bool        `json:"is_table,omitempty"`
	TableCells  []TableCell `json:"table_cells,omitempty"`
}
