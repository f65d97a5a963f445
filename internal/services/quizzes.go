package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"quizly/internal/models"
)

var (
	// ErrQuizNotFound is returned when a quiz does not exist or is not owned
	// by the caller.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNoItems rejects attempts against a quiz with no questions.
	ErrQuizNoItems = errors.New("quiz has no items")
	// ErrQuizAlreadyAttempted rejects a second submission; a quiz is graded
	// at most once.
	ErrQuizAlreadyAttempted = errors.New("quiz has already been attempted")
	// ErrQuizNotAttempted rejects a results view before the quiz is graded.
	ErrQuizNotAttempted = errors.New("quiz has not been attempted yet")
	// ErrAnswerCountMismatch rejects an answer set whose length differs from
	// the quiz's item count.
	ErrAnswerCountMismatch = errors.New("answers must match the number of quiz items")
)

// QuizService governs the quiz lifecycle: generated -> attempted. Grading
// happens exactly once, and the graded items, score and attempted flag
// commit in a single transaction.
type QuizService struct {
	db *sql.DB
}

func NewQuizService(db *sql.DB) *QuizService {
	return &QuizService{db: db}
}

// GradeItems evaluates answers against items by sequence position: the
// answer with QuestionIndex i grades item i, a missing answer grades as the
// empty string. Comparison is case-sensitive for mcq and true_false and
// case-insensitive for fill_blank. Returns the items rewritten with
// UserAnswer/IsCorrect and the integer percentage score. Pure; identical
// input always yields identical output.
func GradeItems(items []models.QuizItem, answers []models.SubmittedAnswer) ([]models.QuizItem, int) {
	graded := make([]models.QuizItem, len(items))
	correct := 0

	for i, item := range items {
		userAnswer := ""
		for _, ans := range answers {
			if ans.QuestionIndex == i {
				userAnswer = ans.UserAnswer
				break
			}
		}

		switch item.Kind {
		case models.KindFillBlank:
			item.IsCorrect = strings.EqualFold(userAnswer, item.CorrectAnswer)
		default:
			item.IsCorrect = userAnswer == item.CorrectAnswer
		}
		item.UserAnswer = userAnswer
		if item.IsCorrect {
			correct++
		}
		graded[i] = item
	}

	score := 0
	if len(items) > 0 {
		score = int(math.Round(float64(correct) / float64(len(items)) * 100))
	}
	return graded, score
}

// SubmitAttempt grades a quiz and transitions it to attempted. Preconditions
// are checked in order: the quiz must exist and belong to the caller, have
// at least one item, not be attempted yet, and the answer set must match the
// item count. The attempted flag is claimed with a conditional update inside
// the grading transaction, so a concurrent duplicate submission loses with
// ErrQuizAlreadyAttempted. Returns the computed score.
func (s *QuizService) SubmitAttempt(ctx context.Context, ownerID, quizID int64, answers []models.SubmittedAnswer, duration int) (int, error) {
	quiz, err := s.get(ctx, ownerID, quizID)
	if err != nil {
		return 0, err
	}
	if len(quiz.Items) == 0 {
		return 0, ErrQuizNoItems
	}
	if quiz.Attempted {
		return 0, ErrQuizAlreadyAttempted
	}
	if len(answers) != len(quiz.Items) {
		return 0, ErrAnswerCountMismatch
	}

	graded, score := GradeItems(quiz.Items, answers)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE quizzes SET attempted = 1, attempted_at = ?, score = ?, duration = ?
		WHERE id = ? AND owner_id = ? AND attempted = 0;
	`, time.Now().UTC(), score, duration, quizID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("claim attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrQuizAlreadyAttempted
	}

	for pos, item := range graded {
		if _, err := tx.ExecContext(ctx, `
			UPDATE quiz_items SET user_answer = ?, is_correct = ?
			WHERE quiz_id = ? AND position = ?;
		`, item.UserAnswer, boolToInt(item.IsCorrect), quizID, pos); err != nil {
			return 0, fmt.Errorf("update quiz item %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attempt: %w", err)
	}
	return score, nil
}

// GetForAttempt returns a quiz ready to be taken, with correct answers and
// explanations withheld. Empty and already-attempted quizzes are rejected.
func (s *QuizService) GetForAttempt(ctx context.Context, ownerID, quizID int64) (*models.Quiz, error) {
	quiz, err := s.get(ctx, ownerID, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Items) == 0 {
		return nil, ErrQuizNoItems
	}
	if quiz.Attempted {
		return nil, ErrQuizAlreadyAttempted
	}

	for i := range quiz.Items {
		quiz.Items[i].CorrectAnswer = ""
		quiz.Items[i].Explanation = ""
	}
	return quiz, nil
}

// GetResults returns the fully graded quiz, including per-item correctness.
// Only available once the quiz has been attempted.
func (s *QuizService) GetResults(ctx context.Context, ownerID, quizID int64) (*models.Quiz, error) {
	quiz, err := s.get(ctx, ownerID, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.Attempted {
		return nil, ErrQuizNotAttempted
	}
	return quiz, nil
}

// QuizSummary is a list row: quiz metadata plus the item count, with item
// contents withheld.
type QuizSummary struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"documentId"`
	Title       string     `json:"title"`
	ItemCount   int        `json:"itemCount"`
	Attempted   bool       `json:"attempted"`
	AttemptedAt *time.Time `json:"attemptedDate,omitempty"`
	Score       int        `json:"score"`
	Duration    int        `json:"duration"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// List returns the owner's quizzes newest first, optionally filtered to a
// set of source documents.
func (s *QuizService) List(ctx context.Context, ownerID int64, documentIDs []int64, page, limit int) ([]QuizSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where := "owner_id = ?"
	args := []any{ownerID}
	if len(documentIDs) > 0 {
		where += " AND document_id IN (" + placeholders(len(documentIDs)) + ")"
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quizzes WHERE "+where+";", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}

	query := `
		SELECT q.id, q.document_id, q.title, q.attempted, q.attempted_at, q.score, q.duration, q.created_at,
			   (SELECT COUNT(*) FROM quiz_items i WHERE i.quiz_id = q.id) AS item_count
		FROM quizzes q
		WHERE ` + where + `
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT ? OFFSET ?;`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []QuizSummary
	for rows.Next() {
		var q QuizSummary
		var attempted int
		var attemptedAt sql.NullTime
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Title, &attempted, &attemptedAt,
			&q.Score, &q.Duration, &q.CreatedAt, &q.ItemCount); err != nil {
			return nil, 0, fmt.Errorf("scan quiz: %w", err)
		}
		q.Attempted = attempted != 0
		if attemptedAt.Valid {
			t := attemptedAt.Time
			q.AttemptedAt = &t
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (s *QuizService) get(ctx context.Context, ownerID, quizID int64) (*models.Quiz, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, document_id, title, attempted, attempted_at, score, duration, created_at
		FROM quizzes
		WHERE id = ? AND owner_id = ?;
	`, quizID, ownerID)

	quiz := &models.Quiz{}
	var attempted int
	err := row.Scan(&quiz.ID, &quiz.OwnerID, &quiz.DocumentID, &quiz.Title,
		&attempted, &quiz.AttemptedAt, &quiz.Score, &quiz.Duration, &quiz.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}
	quiz.Attempted = attempted != 0

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, prompt, options, correct_answer, explanation, tags, difficulty, user_answer, is_correct
		FROM quiz_items
		WHERE quiz_id = ?
		ORDER BY position ASC;
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("select quiz items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.QuizItem
		var options sql.NullString
		var tags string
		var isCorrect int
		if err := rows.Scan(&item.Kind, &item.Prompt, &options, &item.CorrectAnswer,
			&item.Explanation, &tags, &item.Difficulty, &item.UserAnswer, &isCorrect); err != nil {
			return nil, fmt.Errorf("scan quiz item: %w", err)
		}
		if options.Valid {
			item.Options = unmarshalTags(options.String)
		}
		item.Tags = unmarshalTags(tags)
		item.IsCorrect = isCorrect != 0
		quiz.Items = append(quiz.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return quiz, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
