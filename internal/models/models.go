package models

import (
	"database/sql"
	"time"
)

type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentDOCX DocumentType = "docx"
	DocumentTXT  DocumentType = "txt"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the three supported tiers.
func ValidDifficulty(d Difficulty) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type QuestionKind string

const (
	KindMCQ       QuestionKind = "mcq"
	KindTrueFalse QuestionKind = "true_false"
	KindFillBlank QuestionKind = "fill_blank"
)

// ValidQuestionKind reports whether k is a supported quiz question kind.
func ValidQuestionKind(k QuestionKind) bool {
	return k == KindMCQ || k == KindTrueFalse || k == KindFillBlank
}

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Document holds the extracted plain text of one uploaded study file.
// FlashcardsGenerated flips false->true exactly once, when flashcard
// generation commits.
type Document struct {
	ID                  int64
	OwnerID             int64
	Title               string
	Type                DocumentType
	OriginalName        string
	Body                string
	Size                int64
	FlashcardsGenerated bool
	CreatedAt           time.Time
}

type Flashcard struct {
	ID         int64
	OwnerID    int64
	DocumentID int64
	Question   string
	Answer     string
	Tags       []string
	Difficulty Difficulty
	CreatedAt  time.Time
}

// QuizItem is one question embedded in a quiz. Position within the quiz is
// the stable identifier submitted answers refer to; there is no separate
// item id exposed. UserAnswer and IsCorrect stay zero until the owning quiz
// is attempted.
type QuizItem struct {
	Kind          QuestionKind
	Prompt        string
	Options       []string
	CorrectAnswer string
	Explanation   string
	Tags          []string
	Difficulty    Difficulty
	UserAnswer    string
	IsCorrect     bool
}

type Quiz struct {
	ID          int64
	OwnerID     int64
	DocumentID  int64
	Title       string
	Items       []QuizItem
	Attempted   bool
	AttemptedAt sql.NullTime
	Score       int
	Duration    int
	CreatedAt   time.Time
}

// SubmittedAnswer pairs a quiz item position with the answer the user gave.
type SubmittedAnswer struct {
	QuestionIndex int    `json:"questionIndex"`
	UserAnswer    string `json:"userAnswer"`
}
