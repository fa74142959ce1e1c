package parser

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var docFormats = []string{"pdf", "txt", "md", "docx"}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize(10*1024*1024, 50))
	err := ValidateSize(51*1024*1024, 50)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExtractTextFromTxt(t *testing.T) {
	path := writeTemp(t, "report.txt", "Patient: John Doe\nBP: 130/85 mmHg\n")
	text, err := ExtractText(path, docFormats)
	require.NoError(t, err)
	assert.Contains(t, text, "130/85")
}

func TestExtractTextFromMarkdown(t *testing.T) {
	md := "# Discharge Summary\n\nPatient was admitted with *pneumonia*.\n\n- Azithromycin 500mg\n- Follow-up in 3 days\n"
	path := writeTemp(t, "report.md", md)
	text, err := ExtractText(path, docFormats)
	require.NoError(t, err)
	assert.Contains(t, text, "Discharge Summary")
	assert.Contains(t, text, "pneumonia")
	assert.Contains(t, text, "Azithromycin 500mg")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "*")
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "report.exe", "binary")
	_, err := ExtractText(path, docFormats)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExtractTextFormatNotInConfiguredList(t *testing.T) {
	path := writeTemp(t, "report.md", "# hi")
	_, err := ExtractText(path, []string{"pdf", "txt"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExtractImageTextUnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "scan.bmp", "not an image")
	_, err := ExtractImageText(context.Background(), path, []string{"jpg", "png"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExtractImageTextWithoutOCREngine(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err == nil {
		t.Skip("tesseract installed, degradation path not reachable")
	}
	path := writeTemp(t, "scan.png", "not a real png")
	text, err := ExtractImageText(context.Background(), path, []string{"jpg", "png"})
	require.NoError(t, err)
	assert.Empty(t, text)
}
