package services

import (
	"bytes"
	"testing"

	"quizly/internal/models"
)

func TestWriteFlashcardsPDF(t *testing.T) {
	cards := []models.Flashcard{
		{Question: "What is mitochondria?", Answer: "The powerhouse of the cell", Tags: []string{"biology"}, Difficulty: models.DifficultyEasy},
		{Question: "Define osmosis", Answer: "Diffusion of water across a membrane", Tags: nil, Difficulty: models.DifficultyMedium},
	}

	var buf bytes.Buffer
	if err := WriteFlashcardsPDF(&buf, "Biology - Flashcards", cards); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not look like a PDF")
	}
	if buf.Len() < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestWriteFlashcardsPDFEmptyDeck(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlashcardsPDF(&buf, "Empty", nil); err != nil {
		t.Fatalf("empty deck must still render a title page: %v", err)
	}
}
