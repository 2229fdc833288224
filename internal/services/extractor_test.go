package services

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Go Engineer</w:t></w:r></w:p>
<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go &amp; SQL</w:t></w:r></w:p>
</w:body>
</w:document>`

// Package parts for hand-built DOCX fixtures.
const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
)

func buildTestDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"_rels/.rels":                  packageRelsXML,
		"word/_rels/document.xml.rels": documentRelsXML,
		"word/document.xml":            documentXML,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		filename string
		mimeType string
		want     DocumentType
		wantErr  bool
	}{
		{"resume.pdf", "", DocumentPDF, false},
		{"RESUME.PDF", "application/octet-stream", DocumentPDF, false},
		{"resume", MimePDF, DocumentPDF, false},
		{"resume.bin", MimeDOCX, DocumentDOCX, false},
		{"resume.docx", "", DocumentDOCX, false},
		{"resume.doc", "application/msword", "", true},
		{"notes.txt", "text/plain", "", true},
		{"noext", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.mimeType, func(t *testing.T) {
			got, err := DetectDocumentType(tt.filename, tt.mimeType)
			if tt.wantErr {
				var uErr *models.UnsupportedFormatError
				assert.ErrorAs(t, err, &uErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_DOCX(t *testing.T) {
	data := buildTestDOCX(t, testDocumentXML)

	text, err := NewTextExtractor().Extract("resume.docx", "", data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Go Engineer\nSkills:\tGo & SQL", text)
}

func TestExtract_EmptyDOCX(t *testing.T) {
	data := buildTestDOCX(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body/></w:document>`)

	_, err := NewTextExtractor().Extract("empty.docx", "", data)
	var pErr *models.ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestExtract_CorruptInputs(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"pdf garbage", "resume.pdf", []byte("this is not a pdf")},
		{"truncated pdf header", "resume.pdf", []byte("%PDF-1.4\n1 0 obj\n<<")},
		{"docx garbage", "resume.docx", []byte("PK\x03\x04 broken zip")},
		{"empty pdf", "resume.pdf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTextExtractor().Extract(tt.filename, "", tt.data)
			var pErr *models.ParseError
			assert.ErrorAs(t, err, &pErr)
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := NewTextExtractor().Extract("photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	var uErr *models.UnsupportedFormatError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "photo.png", uErr.Filename)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a\nb", CleanText("  a  \n\n\n   b \n"))
	assert.Equal(t, "", CleanText(" \n "))
}
