// Package report derives display statistics from a session's saved answers.
package report

import (
	"fmt"

	"github.com/pavelanni/mockview/internal/model"
)

// Buckets is the rating distribution for one interview's answers.
// The three counts partition the record set: every record lands in exactly
// one bucket.
type Buckets struct {
	High   int `json:"high"`   // rating >= 8
	Medium int `json:"medium"` // 5 <= rating < 8
	Low    int `json:"low"`    // rating < 5
}

// OverallRating returns the arithmetic mean rating formatted to one decimal
// place, or "0.0" for an empty record set.
func OverallRating(records []model.UserAnswer) string {
	if len(records) == 0 {
		return "0.0"
	}
	total := 0
	for _, r := range records {
		total += r.Rating
	}
	return fmt.Sprintf("%.1f", float64(total)/float64(len(records)))
}

// RatingBuckets counts records into high/medium/low rating bands.
func RatingBuckets(records []model.UserAnswer) Buckets {
	var b Buckets
	for _, r := range records {
		switch {
		case r.Rating >= 8:
			b.High++
		case r.Rating >= 5:
			b.Medium++
		default:
			b.Low++
		}
	}
	return b
}
