package model

import "time"

// ResultsExport is the top-level JSON structure for the export command.
type ResultsExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Interviews []InterviewResult `json:"interviews"`
}

// InterviewResult holds one interview's definition and answer history.
type InterviewResult struct {
	Interview     Interview    `json:"interview"`
	Answers       []UserAnswer `json:"answers"`
	OverallRating string       `json:"overall_rating"`
	High          int          `json:"high"`
	Medium        int          `json:"medium"`
	Low           int          `json:"low"`
}
