package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"quizly/internal/models"
)

// WriteFlashcardsPDF renders a flashcard deck as a printable PDF: a title
// page followed by three cards per page.
func WriteFlashcardsPDF(w io.Writer, title string, cards []models.Flashcard) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 14, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated on %s", time.Now().Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Total Flashcards: %d", len(cards)), "", 1, "C", false, 0, "")

	for i, card := range cards {
		if i%3 == 0 {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 6, fmt.Sprintf("Card %d  -  %s", i+1, strings.ToUpper(string(card.Difficulty))), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(37, 99, 235)
		pdf.CellFormat(8, 6, "Q:", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 6, card.Question, "", "L", false)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(220, 38, 38)
		pdf.CellFormat(8, 6, "A:", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 6, card.Answer, "", "L", false)

		if len(card.Tags) > 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(102, 102, 102)
			pdf.MultiCell(0, 5, "Tags: "+strings.Join(card.Tags, ", "), "", "L", false)
		}
		pdf.Ln(8)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render flashcards pdf: %w", err)
	}
	return nil
}
