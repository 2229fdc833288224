package services

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"alfredoptarigan/resumeiq/internal/models"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportService renders analysis results into downloadable documents.
type ExportService interface {
	CoverLetter(req models.CoverLetterExportRequest) (*models.ExportResponse, error)
	Resume(req models.ResumeExportRequest) (*models.ExportResponse, error)
	Report(req models.ReportExportRequest) (*models.ExportResponse, error)
	Open(name string) (string, string, error)
}

type exportService struct {
	storage StorageService
	baseURL string
}

// NewExportService stores rendered files through storage. baseURL prefixes the
// download URL returned to callers, e.g. "/api/v1/exports".
func NewExportService(storage StorageService, baseURL string) ExportService {
	return &exportService{
		storage: storage,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *exportService) CoverLetter(req models.CoverLetterExportRequest) (*models.ExportResponse, error) {
	if strings.TrimSpace(req.CoverLetter) == "" {
		return nil, models.NewValidationError("cover_letter", "cover letter text is required")
	}

	data, err := renderDocument(req.Format, coverLetterBlocks(req.CoverLetter, req.CompanyName))
	if err != nil {
		return nil, err
	}
	return s.store("cover-letter", req.Format, data)
}

func (s *exportService) Resume(req models.ResumeExportRequest) (*models.ExportResponse, error) {
	if strings.TrimSpace(req.Resume.FullName) == "" {
		return nil, models.NewValidationError("resume.full_name", "full name is required")
	}

	data, err := renderDocument(req.Format, resumeBlocks(req.Resume))
	if err != nil {
		return nil, err
	}
	return s.store(fileSlug(req.Resume.FullName, "resume"), req.Format, data)
}

func (s *exportService) Report(req models.ReportExportRequest) (*models.ExportResponse, error) {
	var (
		data []byte
		err  error
	)

	switch req.Feature {
	case models.FeatureComparison:
		result, decodeErr := models.DecodeResult[models.ComparisonResult](req.Data)
		if decodeErr != nil {
			return nil, decodeErr
		}
		data, err = ComparisonWorkbook(result)
	case models.FeatureChecklist:
		result, decodeErr := models.DecodeResult[models.ChecklistResult](req.Data)
		if decodeErr != nil {
			return nil, decodeErr
		}
		data, err = ChecklistWorkbook(result)
	default:
		return nil, models.NewValidationError("feature", "reports are available for comparison and checklist only, got %q", req.Feature)
	}
	if err != nil {
		return nil, err
	}
	return s.store(string(req.Feature)+"-report", models.ExportXLSX, data)
}

// Open returns the path and content type of a stored export.
func (s *exportService) Open(name string) (string, string, error) {
	path, err := s.storage.GetFilePath(name)
	if err != nil {
		return "", "", err
	}
	return path, contentTypeFor(name), nil
}

func (s *exportService) store(prefix string, format models.ExportFormat, data []byte) (*models.ExportResponse, error) {
	name, size, err := s.storage.SaveFile(prefix, string(format), data)
	if err != nil {
		return nil, err
	}

	return &models.ExportResponse{
		Name:        name,
		URL:         s.baseURL + "/" + name,
		ContentType: contentTypeFor(name),
		Size:        size,
	}, nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return ContentTypePDF
	case strings.HasSuffix(name, ".docx"):
		return ContentTypeDOCX
	case strings.HasSuffix(name, ".xlsx"):
		return ContentTypeXLSX
	default:
		return "application/octet-stream"
	}
}

// fileSlug turns "Jane Q. Doe" into "Jane_Q_Doe".
func fileSlug(name, fallback string) string {
	var b strings.Builder
	for _, field := range strings.Fields(name) {
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		for _, r := range field {
			if r < 128 && (r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				b.WriteRune(r)
			}
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return fallback
	}
	return slug
}

type blockKind int

const (
	blockTitle blockKind = iota
	blockHeading
	blockText
	blockMeta
	blockBullet
	blockSpacer
)

// block is one paragraph of an exported document. Lead, when set, is printed
// in bold before Text.
type block struct {
	Kind blockKind
	Lead string
	Text string
}

func coverLetterBlocks(text, company string) []block {
	blocks := []block{{Kind: blockTitle, Text: "Cover Letter"}}
	if company = strings.TrimSpace(company); company != "" {
		blocks = append(blocks, block{Kind: blockMeta, Text: company})
	}
	blocks = append(blocks, block{Kind: blockSpacer})

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(para) == "" {
			blocks = append(blocks, block{Kind: blockSpacer})
			continue
		}
		blocks = append(blocks, block{Kind: blockText, Text: para})
	}
	return blocks
}

func resumeBlocks(r models.OptimizedResume) []block {
	blocks := []block{{Kind: blockTitle, Text: r.FullName}}

	contact := nonEmpty(r.Contact.Email, r.Contact.Phone, r.Contact.Location, r.Contact.LinkedIn, r.Contact.GitHub)
	if len(contact) > 0 {
		blocks = append(blocks, block{Kind: blockMeta, Text: strings.Join(contact, " | ")})
	}

	if summary := strings.TrimSpace(r.ProfessionalSummary); summary != "" {
		blocks = append(blocks,
			block{Kind: blockHeading, Text: "PROFESSIONAL SUMMARY"},
			block{Kind: blockText, Text: summary},
		)
	}

	if len(r.Experience) > 0 {
		blocks = append(blocks, block{Kind: blockHeading, Text: "EXPERIENCE"})
		for _, exp := range r.Experience {
			line := block{Kind: blockText, Lead: exp.Title}
			if exp.Company != "" {
				line.Text = " - " + exp.Company
			}
			blocks = append(blocks, line)
			if meta := nonEmpty(exp.Location, exp.Dates); len(meta) > 0 {
				blocks = append(blocks, block{Kind: blockMeta, Text: strings.Join(meta, " | ")})
			}
			for _, achievement := range exp.Achievements {
				blocks = append(blocks, block{Kind: blockBullet, Text: achievement})
			}
		}
	}

	skills := []struct {
		label string
		items []string
	}{
		{"Technical", r.Skills.Technical},
		{"Tools", r.Skills.Tools},
		{"Soft skills", r.Skills.SoftSkills},
	}
	var skillBlocks []block
	for _, group := range skills {
		if len(group.items) > 0 {
			skillBlocks = append(skillBlocks, block{Kind: blockText, Lead: group.label + ": ", Text: strings.Join(group.items, ", ")})
		}
	}
	if len(skillBlocks) > 0 {
		blocks = append(blocks, block{Kind: blockHeading, Text: "SKILLS"})
		blocks = append(blocks, skillBlocks...)
	}

	if len(r.Education) > 0 {
		blocks = append(blocks, block{Kind: blockHeading, Text: "EDUCATION"})
		for _, edu := range r.Education {
			blocks = append(blocks, block{Kind: blockText, Lead: edu.Degree})
			if meta := nonEmpty(edu.Institution, edu.GraduationDate); len(meta) > 0 {
				blocks = append(blocks, block{Kind: blockText, Text: strings.Join(meta, " - ")})
			}
			if extra := nonEmpty(edu.GPA, edu.Honors); len(extra) > 0 {
				blocks = append(blocks, block{Kind: blockMeta, Text: strings.Join(extra, " | ")})
			}
		}
	}

	if len(r.Projects) > 0 {
		blocks = append(blocks, block{Kind: blockHeading, Text: "PROJECTS"})
		for _, p := range r.Projects {
			line := block{Kind: blockBullet, Lead: p.Name}
			if p.Description != "" {
				line.Text = ": " + p.Description
			}
			blocks = append(blocks, line)
		}
	}

	if len(r.Certifications) > 0 {
		blocks = append(blocks, block{Kind: blockHeading, Text: "CERTIFICATIONS"})
		for _, c := range r.Certifications {
			blocks = append(blocks, block{Kind: blockBullet, Text: c})
		}
	}

	return blocks
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func renderDocument(format models.ExportFormat, blocks []block) ([]byte, error) {
	switch format {
	case models.ExportPDF:
		return renderPDF(blocks)
	case models.ExportDOCX:
		return renderDOCX(blocks)
	default:
		return nil, models.NewValidationError("format", "unsupported document format %q (want pdf or docx)", format)
	}
}

func renderPDF(blocks []block) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Core fonts are cp1252; the translator maps UTF-8 input onto it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, b := range blocks {
		switch b.Kind {
		case blockTitle:
			pdf.SetFont("Helvetica", "B", 16)
			pdf.MultiCell(0, 8, tr(b.Text), "", "L", false)
			pdf.Ln(2)
		case blockHeading:
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 6, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case blockMeta:
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr(b.Text), "", "L", false)
		case blockSpacer:
			pdf.Ln(4)
		case blockBullet:
			writeRuns(pdf, tr, "• "+b.Lead, b.Text, b.Lead != "")
		default:
			writeRuns(pdf, tr, b.Lead, b.Text, true)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRuns(pdf *fpdf.Fpdf, tr func(string) string, lead, text string, boldLead bool) {
	const lineHeight = 5.5
	if lead != "" {
		if boldLead {
			pdf.SetFont("Helvetica", "B", 11)
		} else {
			pdf.SetFont("Helvetica", "", 11)
		}
		pdf.Write(lineHeight, tr(lead))
	}
	pdf.SetFont("Helvetica", "", 11)
	if text != "" {
		pdf.Write(lineHeight, tr(text))
	}
	pdf.Ln(lineHeight + 0.5)
}

func renderDOCX(blocks []block) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	for _, b := range blocks {
		para := doc.AddParagraph()
		switch b.Kind {
		case blockTitle:
			addRun(para, b.Text).Bold().Size("32")
		case blockHeading:
			addRun(para, b.Text).Bold().Size("26")
		case blockMeta:
			addRun(para, b.Text).Italic().Size("20")
		case blockSpacer:
		case blockBullet:
			addRun(para, "• ")
			if b.Lead != "" {
				addRun(para, b.Lead).Bold()
			}
			addRun(para, b.Text)
		default:
			if b.Lead != "" {
				addRun(para, b.Lead).Bold()
			}
			addRun(para, b.Text)
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write DOCX: %w", err)
	}
	return buf.Bytes(), nil
}

// addRun appends text that keeps its leading and trailing spaces, so runs
// split across bold and plain text join up when read back.
func addRun(para *docx.Paragraph, text string) *docx.Run {
	run := para.AddText(text)
	for _, child := range run.Children {
		if t, ok := child.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return run
}

type sheetStyles struct {
	header    int
	label     int
	wrap      int
	excellent int
	good      int
	fair      int
	poor      int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	var (
		s   sheetStyles
		err error
	)

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}); err != nil {
		return nil, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	}); err != nil {
		return nil, err
	}

	fills := []struct {
		dst   *int
		color string
	}{
		{&s.excellent, "C6EFCE"},
		{&s.good, "DDEBF7"},
		{&s.fair, "FFEB9C"},
		{&s.poor, "FFC7CE"},
	}
	for _, fill := range fills {
		if *fill.dst, err = f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill.color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		}); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (s *sheetStyles) band(score float64) int {
	switch BandForScore(score) {
	case BandExcellent:
		return s.excellent
	case BandGood:
		return s.good
	case BandFair:
		return s.fair
	default:
		return s.poor
	}
}

func (s *sheetStyles) status(status string) int {
	switch strings.ToLower(status) {
	case "present":
		return s.excellent
	case "partial":
		return s.fair
	case "missing":
		return s.poor
	default:
		return s.wrap
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func writeHeaderRow(f *excelize.File, sheet string, row int, headers []string, style int) error {
	for i, h := range headers {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, name, h)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell("A", row), last, style)
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ComparisonWorkbook renders a candidate comparison with a summary sheet and
// a ranked candidates sheet, rows colored by score band.
func ComparisonWorkbook(result models.ComparisonResult) ([]byte, error) {
	if len(result.Candidates) == 0 {
		return nil, models.NewValidationError("data.candidates", "comparison has no candidates to export")
	}

	candidates := append([]models.ComparisonCandidate(nil), result.Candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].OverallScore > candidates[j].OverallScore
	})

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	summarySheet := "Summary"
	candidatesSheet := "Ranked Candidates"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return nil, fmt.Errorf("failed to create candidates sheet: %w", err)
	}

	f.SetColWidth(summarySheet, "A", "A", 25)
	f.SetColWidth(summarySheet, "B", "B", 50)

	row := 1
	f.SetCellValue(summarySheet, cell("A", row), "Candidate Comparison")
	f.MergeCell(summarySheet, cell("A", row), cell("B", row))
	f.SetCellStyle(summarySheet, cell("A", row), cell("B", row), styles.header)
	row += 2

	total := result.TotalCandidates
	if total == 0 {
		total = len(candidates)
	}
	summary := []struct {
		label string
		value any
	}{
		{"Job Title:", result.JobTitle},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Total Candidates:", total},
		{"Top Candidate:", candidates[0].Name},
		{"Top Score:", candidates[0].OverallScore},
	}
	for _, item := range summary {
		f.SetCellValue(summarySheet, cell("A", row), item.label)
		f.SetCellStyle(summarySheet, cell("A", row), cell("A", row), styles.label)
		f.SetCellValue(summarySheet, cell("B", row), item.value)
		row++
	}

	headers := []string{"Rank", "Name", "Email", "Overall Score", "Band", "Required Skills %", "Preferred Skills %", "Key Strengths", "Missing Skills", "Summary"}
	if err := writeHeaderRow(f, candidatesSheet, 1, headers, styles.header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	widths := []float64{6, 24, 28, 14, 12, 16, 16, 40, 40, 60}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(candidatesSheet, col, col, w)
	}

	for i, c := range candidates {
		r := i + 2
		values := []any{
			i + 1,
			c.Name,
			c.Email,
			c.OverallScore,
			string(BandForScore(c.OverallScore)),
			c.RequiredSkillsPercent,
			c.PreferredSkillsPercent,
			strings.Join(c.KeyStrengths, "; "),
			strings.Join(c.MissingSkills, "; "),
			c.Summary,
		}
		for j, v := range values {
			name, _ := excelize.CoordinatesToCellName(j+1, r)
			f.SetCellValue(candidatesSheet, name, v)
		}
		f.SetCellStyle(candidatesSheet, cell("A", r), cell("J", r), styles.band(c.OverallScore))
	}

	f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	f.AutoFilter(candidatesSheet, fmt.Sprintf("A1:J%d", len(candidates)+1), nil)

	return workbookBytes(f)
}

// ChecklistWorkbook renders a requirement checklist, statuses colored
// present/partial/missing, plus a summary sheet.
func ChecklistWorkbook(result models.ChecklistResult) ([]byte, error) {
	if len(result.Checklist) == 0 {
		return nil, models.NewValidationError("data.checklist", "checklist has no requirements to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	checklistSheet := "Checklist"
	summarySheet := "Summary"
	f.SetSheetName("Sheet1", checklistSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headers := []string{"Requirement", "Category", "Status", "Evidence"}
	if err := writeHeaderRow(f, checklistSheet, 1, headers, styles.header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	f.SetColWidth(checklistSheet, "A", "A", 45)
	f.SetColWidth(checklistSheet, "B", "B", 16)
	f.SetColWidth(checklistSheet, "C", "C", 12)
	f.SetColWidth(checklistSheet, "D", "D", 60)

	for i, item := range result.Checklist {
		r := i + 2
		f.SetCellValue(checklistSheet, cell("A", r), item.Requirement)
		f.SetCellValue(checklistSheet, cell("B", r), item.Category)
		f.SetCellValue(checklistSheet, cell("C", r), item.Status)
		f.SetCellValue(checklistSheet, cell("D", r), item.Evidence)
		f.SetCellStyle(checklistSheet, cell("A", r), cell("D", r), styles.wrap)
		f.SetCellStyle(checklistSheet, cell("C", r), cell("C", r), styles.status(item.Status))
	}
	f.SetPanes(checklistSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	f.AutoFilter(checklistSheet, fmt.Sprintf("A1:D%d", len(result.Checklist)+1), nil)

	sum := result.Summary
	if sum.TotalRequirements == 0 {
		sum.TotalRequirements = len(result.Checklist)
		for _, item := range result.Checklist {
			switch strings.ToLower(item.Status) {
			case "present":
				sum.Present++
			case "partial":
				sum.Partial++
			case "missing":
				sum.Missing++
			}
		}
	}

	f.SetColWidth(summarySheet, "A", "A", 25)
	f.SetColWidth(summarySheet, "B", "B", 60)
	rows := []struct {
		label string
		value any
	}{
		{"Total Requirements:", sum.TotalRequirements},
		{"Present:", sum.Present},
		{"Partial:", sum.Partial},
		{"Missing:", sum.Missing},
		{"Match Percentage:", sum.MatchPercentage},
		{"Key Strengths:", strings.Join(sum.KeyStrengths, "; ")},
		{"Main Gaps:", strings.Join(sum.MainGaps, "; ")},
	}
	for i, item := range rows {
		r := i + 1
		f.SetCellValue(summarySheet, cell("A", r), item.label)
		f.SetCellStyle(summarySheet, cell("A", r), cell("A", r), styles.label)
		f.SetCellValue(summarySheet, cell("B", r), item.value)
	}

	return workbookBytes(f)
}
