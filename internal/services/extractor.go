package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"alfredoptarigan/resumeiq/internal/models"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentDOCX DocumentType = "docx"
)

type TextExtractor interface {
	Extract(filename, mimeType string, data []byte) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// DetectDocumentType resolves the type from the MIME type first and falls
// back to the file extension.
func DetectDocumentType(filename, mimeType string) (DocumentType, error) {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		switch mt {
		case MimePDF:
			return DocumentPDF, nil
		case MimeDOCX:
			return DocumentDOCX, nil
		}
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		return DocumentPDF, nil
	case ".docx":
		return DocumentDOCX, nil
	default:
		format := mimeType
		if format == "" {
			format = ext
		}
		return "", &models.UnsupportedFormatError{Filename: filename, Format: format}
	}
}

func (e *textExtractor) Extract(filename, mimeType string, data []byte) (string, error) {
	docType, err := DetectDocumentType(filename, mimeType)
	if err != nil {
		return "", err
	}

	var text string
	switch docType {
	case DocumentPDF:
		text, err = extractPDF(data)
	case DocumentDOCX:
		text, err = extractDOCX(data)
	}
	if err != nil {
		return "", &models.ParseError{Source: filename, Message: "could not read document", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &models.ParseError{Source: filename, Message: "no text content found"}
	}
	return text, nil
}

// extractPDF joins the plain text of every page with a blank line. The PDF
// decoder panics on some malformed inputs, so panics become errors.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var pages []string
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped; the rest still carry the resume.
			continue
		}
		if cleaned := CleanText(pageText); cleaned != "" {
			pages = append(pages, cleaned)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer r.Close()

	return documentXMLText(r.Editable().GetContent())
}

// documentXMLText collects <w:t> runs, one output line per <w:p> paragraph.
func documentXMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, line.String())
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
