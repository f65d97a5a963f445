package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"quizly/internal/models"
)

// ErrUnsupportedFileType is returned for uploads that are not pdf, docx or txt.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// DocumentTypeForExt maps a file extension (with leading dot, any case) to a
// document type.
func DocumentTypeForExt(ext string) (models.DocumentType, bool) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return models.DocumentPDF, true
	case ".docx":
		return models.DocumentDOCX, true
	case ".txt":
		return models.DocumentTXT, true
	}
	return "", false
}

// ExtractText returns the plain text of a stored upload. The caller decides
// what to do with empty extractions; this function only fails on unreadable
// or unsupported input.
func ExtractText(path string, docType models.DocumentType) (string, error) {
	switch docType {
	case models.DocumentPDF:
		return extractPDF(path)
	case models.DocumentDOCX:
		return extractDOCX(path)
	case models.DocumentTXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read txt: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, docType)
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractDOCX pulls the text runs out of word/document.xml. DOCX is a zip
// container; text lives in w:t elements, paragraphs end at w:p.
func extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			doc = file
			break
		}
	}
	if doc == nil {
		return "", errors.New("docx has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var builder strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(el)
			}
		}
	}
	return builder.String(), nil
}
