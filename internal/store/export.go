package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/report"
)

// ExportAllResults builds an export of every interview with its answer
// history and aggregate ratings.
func (s *Store) ExportAllResults() (*model.ResultsExport, error) {
	rows, err := s.db.Query(`SELECT user_id FROM interviews GROUP BY user_id ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users with interviews: %w", err)
	}
	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	export := &model.ResultsExport{ExportedAt: time.Now()}
	for _, userID := range userIDs {
		interviews, err := s.ListInterviewsByUser(userID)
		if err != nil {
			return nil, fmt.Errorf("list interviews for user %d: %w", userID, err)
		}
		for _, iv := range interviews {
			answers, err := s.ListAnswersForInterview(iv.ID)
			if err != nil {
				return nil, fmt.Errorf("list answers for %s: %w", iv.ID, err)
			}
			buckets := report.RatingBuckets(answers)
			export.Interviews = append(export.Interviews, model.InterviewResult{
				Interview:     iv,
				Answers:       answers,
				OverallRating: report.OverallRating(answers),
				High:          buckets.High,
				Medium:        buckets.Medium,
				Low:           buckets.Low,
			})
		}
	}
	return export, nil
}
