package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gtext "github.com/yuin/goldmark/text"
)

// ErrValidation marks malformed or unsupported input: unknown format, file
// over the size limit, unreadable content.
var ErrValidation = errors.New("validation failed")

// ValidateSize checks the file size against the configured limit.
func ValidateSize(sizeBytes int64, maxMB int) error {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	if sizeMB > float64(maxMB) {
		return fmt.Errorf("%w: file size (%.2f MB) exceeds maximum allowed size (%d MB)",
			ErrValidation, sizeMB, maxMB)
	}
	return nil
}

// ExtractText extracts plain text from a document, dispatching on the file
// extension. Only formats in the supported list are accepted.
func ExtractText(filePath string, supported []string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if !formatSupported(ext, supported) {
		return "", fmt.Errorf("%w: unsupported document format: %q (supported: %s)",
			ErrValidation, ext, strings.Join(supported, ","))
	}

	switch ext {
	case "pdf":
		return extractPDF(filePath)
	case "txt":
		return extractText(filePath)
	case "md", "markdown":
		return extractMarkdown(filePath)
	case "docx":
		return extractDOCX(filePath)
	case "xlsx":
		return extractXLSX(filePath)
	case "ods":
		return extractODS(filePath)
	default:
		return "", fmt.Errorf("%w: unsupported document format: %q", ErrValidation, ext)
	}
}

func formatSupported(ext string, supported []string) bool {
	for _, s := range supported {
		if ext == s {
			return true
		}
	}
	return false
}

func extractPDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("%w: failed to read PDF: %v", ErrValidation, err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: failed to extract PDF page %d: %v", ErrValidation, i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i, pageText))
	}

	text := strings.Join(pages, "\n\n")
	log.Info().Int("pages", numPages).Int("characters", len(text)).Msg("Extracted text from PDF")
	return text, nil
}

func extractText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractMarkdown walks the goldmark AST and collects the text content,
// separating blocks with blank lines.
func extractMarkdown(filePath string) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(gtext.NewReader(src))

	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse markdown: %v", ErrValidation, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func extractDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read DOCX: %v", ErrValidation, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func extractXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read XLSX: %v", ErrValidation, err)
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return strings.Join(sheets, "\n\n"), nil
}

func extractODS(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read spreadsheet: %v", ErrValidation, err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		sheets = append(sheets, text.String())
	}
	return strings.Join(sheets, "\n\n"), nil
}
