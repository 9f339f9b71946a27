package findings

import "github.com/OpenBayHQ/openbay-mvp/engine/vhc"

// Finding is one flagged inspection item, indexed so advisors can pull up
// similar past findings when writing up a health check.
type Finding struct {
	ID         string   `json:"id"`
	ResponseID string   `json:"response_id"`
	VehicleID  string   `json:"vehicle_id"`
	ItemID     string   `json:"item_id"`
	SectionID  string   `json:"section_id"`
	Band       vhc.Band `json:"band"`
	Score      float64  `json:"score"`
	Notes      string   `json:"notes"`
}

// FindingRecord pairs a finding with the embedding of its notes.
type FindingRecord struct {
	Finding   Finding
	Embedding []float32
}

// SimilarFinding is a search hit: a past finding and its cosine similarity
// to the query.
type SimilarFinding struct {
	Finding    Finding `json:"finding"`
	Similarity float32 `json:"similarity"`
}
