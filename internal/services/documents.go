package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizly/internal/models"
)

var (
	// ErrDocumentNotFound is returned when a document does not exist or is
	// not owned by the caller.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyDocument is returned when text extraction yields nothing usable.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// DocumentService stores uploads, extracts their text and owns the
// documents table. Uploaded files are deleted once their text is in the
// database; only the extracted body is kept.
type DocumentService struct {
	db        *sql.DB
	uploadDir string
}

func NewDocumentService(db *sql.DB, uploadDir string) *DocumentService {
	return &DocumentService{db: db, uploadDir: uploadDir}
}

// DocumentSummary is a list row: the document without its body, plus how
// many flashcards and quizzes were derived from it.
type DocumentSummary struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	Type                models.DocumentType `json:"type"`
	OriginalName        string              `json:"originalName"`
	Size                int64               `json:"size"`
	FlashcardsGenerated bool                `json:"flashcardsGenerated"`
	Flashcards          int                 `json:"flashcards"`
	Quizzes             int                 `json:"quizzes"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// CreateFromUpload writes the upload to disk, extracts its text, persists a
// document row and removes the file again. Unsupported extensions and empty
// extractions fail with their sentinel errors so the caller can skip the
// file and keep going.
func (s *DocumentService) CreateFromUpload(ctx context.Context, ownerID int64, originalName string, size int64, src io.Reader) (*models.Document, error) {
	docType, ok := DocumentTypeForExt(filepath.Ext(originalName))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(originalName))
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	storedPath := filepath.Join(s.uploadDir, uuid.NewString()+filepath.Ext(originalName))
	out, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(storedPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	out.Close()
	defer os.Remove(storedPath)

	text, err := ExtractText(storedPath, docType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	title := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (owner_id, title, doc_type, original_name, body, size, flashcards_generated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?);
	`, ownerID, title, docType, originalName, text, size, now)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.Document{
		ID:           id,
		OwnerID:      ownerID,
		Title:        title,
		Type:         docType,
		OriginalName: originalName,
		Body:         text,
		Size:         size,
		CreatedAt:    now,
	}, nil
}

// Get returns a document by id, scoped to its owner.
func (s *DocumentService) Get(ctx context.Context, ownerID, id int64) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, doc_type, original_name, body, size, flashcards_generated, created_at
		FROM documents
		WHERE id = ? AND owner_id = ?;
	`, id, ownerID)

	doc := &models.Document{}
	var generated int
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Type, &doc.OriginalName,
		&doc.Body, &doc.Size, &generated, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc.FlashcardsGenerated = generated != 0
	return doc, nil
}

// List returns the owner's documents newest first, without bodies, with
// per-document flashcard and quiz counts.
func (s *DocumentService) List(ctx context.Context, ownerID int64, page, limit int) ([]DocumentSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.doc_type, d.original_name, d.size, d.flashcards_generated, d.created_at,
			   (SELECT COUNT(*) FROM flashcards f WHERE f.document_id = d.id) AS flashcards,
			   (SELECT COUNT(*) FROM quizzes q WHERE q.document_id = d.id) AS quizzes
		FROM documents d
		WHERE d.owner_id = ?
		ORDER BY d.created_at DESC
		LIMIT ? OFFSET ?;
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var generated int
		if err := rows.Scan(&d.ID, &d.Title, &d.Type, &d.OriginalName, &d.Size,
			&generated, &d.CreatedAt, &d.Flashcards, &d.Quizzes); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		d.FlashcardsGenerated = generated != 0
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id = ?;`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}
