package store

import (
	"database/sql"
	"log/slog"

	"github.com/pavelanni/mockview/internal/model"
)

// SaveUserAnswer inserts a scored answer.
func (s *Store) SaveUserAnswer(ans *model.UserAnswer) error {
	_, err := s.db.Exec(
		`INSERT INTO user_answers (id, interview_id, user_id, question, correct_ans, user_ans, feedback, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ans.ID, ans.InterviewID, ans.UserID, ans.Question, ans.CorrectAns, ans.UserAns,
		ans.Feedback, ans.Rating, ans.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to save answer", "interview", ans.InterviewID, "error", err)
		return err
	}
	return nil
}

// HasUserAnswer reports whether the user already answered this question in
// this interview.
func (s *Store) HasUserAnswer(userID int64, interviewID, question string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM user_answers WHERE user_id = ? AND interview_id = ? AND question = ?`,
		userID, interviewID, question,
	).Scan(&count)
	return count > 0, err
}

// GetUserAnswer returns a saved answer, or nil if the question was never
// answered.
func (s *Store) GetUserAnswer(userID int64, interviewID, question string) (*model.UserAnswer, error) {
	var ans model.UserAnswer
	err := s.db.QueryRow(
		`SELECT id, interview_id, user_id, question, correct_ans, user_ans, feedback, rating, created_at
		 FROM user_answers WHERE user_id = ? AND interview_id = ? AND question = ?`,
		userID, interviewID, question,
	).Scan(&ans.ID, &ans.InterviewID, &ans.UserID, &ans.Question, &ans.CorrectAns,
		&ans.UserAns, &ans.Feedback, &ans.Rating, &ans.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ans, nil
}

// ListAnswersForInterview returns the saved answers for one interview in
// insertion order.
func (s *Store) ListAnswersForInterview(interviewID string) ([]model.UserAnswer, error) {
	rows, err := s.db.Query(
		`SELECT id, interview_id, user_id, question, correct_ans, user_ans, feedback, rating, created_at
		 FROM user_answers WHERE interview_id = ? ORDER BY created_at`, interviewID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.UserAnswer
	for rows.Next() {
		var ans model.UserAnswer
		if err := rows.Scan(&ans.ID, &ans.InterviewID, &ans.UserID, &ans.Question, &ans.CorrectAns,
			&ans.UserAns, &ans.Feedback, &ans.Rating, &ans.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}
