package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/mockview/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'candidate',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		position TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		experience INTEGER NOT NULL DEFAULT 0,
		tech_stack TEXT NOT NULL DEFAULT '',
		questions TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS user_answers (
		id TEXT PRIMARY KEY,
		interview_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		correct_ans TEXT NOT NULL DEFAULT '',
		user_ans TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (interview_id) REFERENCES interviews(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_user_answers_unique
		ON user_answers (user_id, interview_id, question);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateInterview stores an interview with its question set.
func (s *Store) CreateInterview(iv *model.Interview) error {
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO interviews (id, user_id, position, description, experience, tech_stack, questions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.Position, iv.Description, iv.Experience, iv.TechStack,
		string(questions), iv.CreatedAt, iv.UpdatedAt,
	)
	return err
}

// GetInterview returns an interview by ID, or nil if not found.
func (s *Store) GetInterview(id string) (*model.Interview, error) {
	var iv model.Interview
	var questions string
	err := s.db.QueryRow(
		`SELECT id, user_id, position, description, experience, tech_stack, questions, created_at, updated_at
		 FROM interviews WHERE id = ?`, id,
	).Scan(&iv.ID, &iv.UserID, &iv.Position, &iv.Description, &iv.Experience, &iv.TechStack,
		&questions, &iv.CreatedAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &iv.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &iv, nil
}

// ListInterviewsByUser returns a user's interviews, newest first.
func (s *Store) ListInterviewsByUser(userID int64) ([]model.Interview, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, position, description, experience, tech_stack, questions, created_at, updated_at
		 FROM interviews WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var interviews []model.Interview
	for rows.Next() {
		var iv model.Interview
		var questions string
		if err := rows.Scan(&iv.ID, &iv.UserID, &iv.Position, &iv.Description, &iv.Experience,
			&iv.TechStack, &questions, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &iv.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions for %s: %w", iv.ID, err)
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

// UpdateInterview replaces the mutable fields of an interview.
func (s *Store) UpdateInterview(iv *model.Interview) error {
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE interviews SET position = ?, description = ?, experience = ?, tech_stack = ?, questions = ?, updated_at = ?
		 WHERE id = ?`,
		iv.Position, iv.Description, iv.Experience, iv.TechStack, string(questions), time.Now(), iv.ID,
	)
	return err
}

// DeleteInterview removes an interview and its saved answers.
func (s *Store) DeleteInterview(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM user_answers WHERE interview_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM interviews WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// InterviewCount returns the number of stored interviews.
func (s *Store) InterviewCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interviews`).Scan(&count)
	return count, err
}
