package services

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"quizly/internal/db"
	"quizly/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func seedUser(t *testing.T, conn *sql.DB, email string) int64 {
	t.Helper()
	res, err := conn.Exec(`
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ('Test User', ?, 'x', ?);
	`, email, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedDocument(t *testing.T, conn *sql.DB, ownerID int64, body string) int64 {
	t.Helper()
	res, err := conn.Exec(`
		INSERT INTO documents (owner_id, title, doc_type, original_name, body, size, flashcards_generated, created_at)
		VALUES (?, 'Notes', 'txt', 'notes.txt', ?, ?, 0, ?);
	`, ownerID, body, len(body), time.Now().UTC())
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedQuiz(t *testing.T, conn *sql.DB, ownerID, documentID int64, items []models.QuizItem) int64 {
	t.Helper()
	res, err := conn.Exec(`
		INSERT INTO quizzes (owner_id, document_id, title, attempted, score, duration, created_at)
		VALUES (?, ?, 'Notes', 0, 0, 0, ?);
	`, ownerID, documentID, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	quizID, _ := res.LastInsertId()

	for pos, item := range items {
		var options any
		if item.Kind == models.KindMCQ && item.Options != nil {
			options = marshalTags(item.Options)
		}
		if _, err := conn.Exec(`
			INSERT INTO quiz_items (quiz_id, position, kind, prompt, options, correct_answer, explanation, tags, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, quizID, pos, item.Kind, item.Prompt, options, item.CorrectAnswer, item.Explanation,
			marshalTags(item.Tags), item.Difficulty); err != nil {
			t.Fatalf("seed quiz item %d: %v", pos, err)
		}
	}
	return quizID
}
