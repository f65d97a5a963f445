package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"quizly/internal/models"
)

// ErrAlreadyGenerated is returned when flashcard generation is requested for
// a document whose one-time generation flag is already set.
var ErrAlreadyGenerated = errors.New("flashcards already generated for this document")

// artifactGenerator is the per-segment extraction contract; *AIService
// satisfies it.
type artifactGenerator interface {
	GenerateFlashcards(ctx context.Context, segment string, count int) ([]FlashcardData, error)
	GenerateQuizQuestions(ctx context.Context, segment string, count int) ([]QuizQuestionData, error)
}

// GenerationService fans document text out to the artifact generator chunk
// by chunk and persists the merged results. The requested item count is a
// target, not a guarantee: each chunk is over-asked with
// ceil(count/chunks) items and validation may drop some of them.
//
// A failed chunk aborts the whole operation for both flashcards and
// quizzes; partial artifact sets are never persisted.
type GenerationService struct {
	db          *sql.DB
	documents   *DocumentService
	generator   artifactGenerator
	chunkSize   int
	concurrency int
}

func NewGenerationService(db *sql.DB, documents *DocumentService, generator artifactGenerator) *GenerationService {
	return &GenerationService{
		db:          db,
		documents:   documents,
		generator:   generator,
		chunkSize:   DefaultChunkSize,
		concurrency: 4,
	}
}

// GenerateFlashcards derives flashcards from a document's text and persists
// them. The document's generation flag is claimed with a conditional update
// in the same transaction as the insert, so two concurrent requests cannot
// both commit; the loser gets ErrAlreadyGenerated. Returns the number of
// cards created.
func (s *GenerationService) GenerateFlashcards(ctx context.Context, ownerID, documentID int64, count int) (int, error) {
	doc, err := s.documents.Get(ctx, ownerID, documentID)
	if err != nil {
		return 0, err
	}
	if doc.FlashcardsGenerated {
		return 0, ErrAlreadyGenerated
	}

	chunks := ChunkText(doc.Body, s.chunkSize)
	perChunk := ceilDiv(count, len(chunks))

	merged, err := fanOut(ctx, chunks, s.concurrency, func(ctx context.Context, segment string) ([]FlashcardData, error) {
		return s.generator.GenerateFlashcards(ctx, segment, perChunk)
	})
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Atomic claim of the one-time flag: zero rows means another request
	// committed first.
	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET flashcards_generated = 1
		WHERE id = ? AND owner_id = ? AND flashcards_generated = 0;
	`, documentID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("claim generation flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrAlreadyGenerated
	}

	now := time.Now().UTC()
	for _, card := range merged {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flashcards (owner_id, document_id, question, answer, tags, difficulty, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, ownerID, documentID, card.Question, card.Answer, marshalTags(card.Tags), card.Difficulty, now); err != nil {
			return 0, fmt.Errorf("insert flashcard: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit flashcards: %w", err)
	}
	return len(merged), nil
}

// GenerateQuiz derives a quiz from a document's text and persists it with
// its items in chunk order. Unlike flashcards a document may have any number
// of quizzes. Returns the new quiz id.
func (s *GenerationService) GenerateQuiz(ctx context.Context, ownerID, documentID int64, count int) (int64, error) {
	doc, err := s.documents.Get(ctx, ownerID, documentID)
	if err != nil {
		return 0, err
	}

	chunks := ChunkText(doc.Body, s.chunkSize)
	perChunk := ceilDiv(count, len(chunks))

	merged, err := fanOut(ctx, chunks, s.concurrency, func(ctx context.Context, segment string) ([]QuizQuestionData, error) {
		return s.generator.GenerateQuizQuestions(ctx, segment, perChunk)
	})
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO quizzes (owner_id, document_id, title, attempted, score, duration, created_at)
		VALUES (?, ?, ?, 0, 0, 0, ?);
	`, ownerID, documentID, doc.Title, now)
	if err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	quizID, _ := res.LastInsertId()

	for pos, q := range merged {
		var options any
		if q.Kind == models.KindMCQ && q.Options != nil {
			options = marshalTags(q.Options)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_items (quiz_id, position, kind, prompt, options, correct_answer, explanation, tags, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, quizID, pos, q.Kind, q.Prompt, options, q.CorrectAnswer, q.Explanation, marshalTags(q.Tags), q.Difficulty); err != nil {
			return 0, fmt.Errorf("insert quiz item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit quiz: %w", err)
	}
	return quizID, nil
}

// fanOut runs fn over every chunk with bounded concurrency and concatenates
// the results in chunk order. The first failing chunk (in order) aborts the
// whole batch.
func fanOut[T any](ctx context.Context, chunks []string, limit int, fn func(ctx context.Context, segment string) ([]T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([][]T, len(chunks))
	errs := make([]error, len(chunks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(idx int, segment string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], errs[idx] = fn(ctx, segment)
		}(i, chunk)
	}
	wg.Wait()

	var merged []T
	for i := range chunks {
		if errs[i] != nil {
			return nil, fmt.Errorf("generate items for chunk %d/%d: %w", i+1, len(chunks), errs[i])
		}
		merged = append(merged, results[i]...)
	}
	return merged, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
