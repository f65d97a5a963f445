package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database and runs schema migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_foreign_keys=1", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			doc_type TEXT NOT NULL CHECK(doc_type IN ('pdf','docx','txt')),
			original_name TEXT NOT NULL,
			body TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			flashcards_generated INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS flashcards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			document_id INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			difficulty TEXT NOT NULL CHECK(difficulty IN ('easy','medium','hard')),
			created_at DATETIME NOT NULL,
			FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS quizzes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			document_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			attempted INTEGER NOT NULL DEFAULT 0,
			attempted_at DATETIME,
			score INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quiz_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('mcq','true_false','fill_blank')),
			prompt TEXT NOT NULL,
			options TEXT,
			correct_answer TEXT NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			difficulty TEXT NOT NULL CHECK(difficulty IN ('easy','medium','hard')),
			user_answer TEXT NOT NULL DEFAULT '',
			is_correct INTEGER NOT NULL DEFAULT 0,
			UNIQUE(quiz_id, position),
			FOREIGN KEY(quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_flashcards_owner ON flashcards(owner_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_flashcards_document ON flashcards(document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_owner ON quizzes(owner_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_document ON quizzes(document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_items_quiz ON quiz_items(quiz_id, position);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 40)], err)
		}
	}
	return nil
}
