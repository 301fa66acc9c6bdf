package models

// InsufficientTextMarker is the summary reported when nothing usable came back.
const InsufficientTextMarker = "Insufficient text for summary."

type DocumentSummary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// EmptySummary is the default summary result.
func EmptySummary() DocumentSummary {
	return DocumentSummary{Summary: InsufficientTextMarker, KeyPoints: []string{}}
}
