package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizly/internal/models"
)

// ErrNoFlashcards is returned when an export targets a document without any
// generated flashcards.
var ErrNoFlashcards = errors.New("no flashcards found for this document")

// FlashcardService reads the flashcards table. Cards are written in bulk by
// the generation service and never modified afterwards.
type FlashcardService struct {
	db *sql.DB
}

func NewFlashcardService(db *sql.DB) *FlashcardService {
	return &FlashcardService{db: db}
}

// FlashcardFilter narrows List results. Zero values mean "no filter".
type FlashcardFilter struct {
	DocumentIDs []int64
	Tags        []string
	Difficulty  models.Difficulty
	Page        int
	Limit       int
}

// List returns the owner's flashcards newest first, applying the filter.
func (s *FlashcardService) List(ctx context.Context, ownerID int64, filter FlashcardFilter) ([]models.Flashcard, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	where := []string{"owner_id = ?"}
	args := []any{ownerID}

	if len(filter.DocumentIDs) > 0 {
		where = append(where, "document_id IN ("+placeholders(len(filter.DocumentIDs))+")")
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	if filter.Difficulty != "" && models.ValidDifficulty(filter.Difficulty) {
		where = append(where, "difficulty = ?")
		args = append(args, filter.Difficulty)
	}
	if len(filter.Tags) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value IN ("+placeholders(len(filter.Tags))+"))")
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM flashcards WHERE "+clause+";", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count flashcards: %w", err)
	}

	query := `
		SELECT id, owner_id, document_id, question, answer, tags, difficulty, created_at
		FROM flashcards
		WHERE ` + clause + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?;`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	cards, err := scanFlashcards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// ListByDocument returns every flashcard derived from one document, in
// creation order. Used by the PDF export.
func (s *FlashcardService) ListByDocument(ctx context.Context, ownerID, documentID int64) ([]models.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, document_id, question, answer, tags, difficulty, created_at
		FROM flashcards
		WHERE owner_id = ? AND document_id = ?
		ORDER BY id ASC;
	`, ownerID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list flashcards by document: %w", err)
	}
	defer rows.Close()

	return scanFlashcards(rows)
}

func scanFlashcards(rows *sql.Rows) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	for rows.Next() {
		var card models.Flashcard
		var tags string
		if err := rows.Scan(&card.ID, &card.OwnerID, &card.DocumentID,
			&card.Question, &card.Answer, &tags, &card.Difficulty, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		card.Tags = unmarshalTags(tags)
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
