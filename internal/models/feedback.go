package models

// Reserved feedback labels.
const (
	HeaderLabel = "header"
	FooterLabel = "footer"
	// PerKeyLabel nests fragments addressed to individual key values.
	PerKeyLabel = "per-key"
)

// Fragment is a labeled piece of feedback text.
type Fragment struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// IsStructuralLabel reports whether label names a fixed report slot rather than a feedback item.
func IsStructuralLabel(label string) bool {
	return label == HeaderLabel || label == FooterLabel || label == PerKeyLabel
}
