package parser

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExtractImageText runs best-effort OCR over an image. A missing OCR engine
// yields empty text, not an error, so uploads still succeed without it.
func ExtractImageText(ctx context.Context, filePath string, supported []string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if !formatSupported(ext, supported) {
		return "", fmt.Errorf("%w: unsupported image format: %q (supported: %s)",
			ErrValidation, ext, strings.Join(supported, ","))
	}

	logImageInfo(filePath)

	bin, err := exec.LookPath("tesseract")
	if err != nil {
		log.Warn().Msg("tesseract not available, skipping OCR")
		return "", nil
	}

	out, err := exec.CommandContext(ctx, bin, filePath, "stdout").Output()
	if err != nil {
		return "", fmt.Errorf("%w: failed to extract text from image: %v", ErrValidation, err)
	}
	text := string(out)
	log.Info().Int("characters", len(text)).Msg("Extracted text from image")
	return text, nil
}

// logImageInfo decodes just the image header for a diagnostic log line.
// TIFF has no stdlib decoder, so decode failures are not fatal.
func logImageInfo(filePath string) {
	f, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return
	}
	log.Debug().Str("format", format).Int("width", cfg.Width).Int("height", cfg.Height).
		Msg("Processing image")
}
