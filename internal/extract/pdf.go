package extract

import (
	"fmt"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/book-expert/narration-service/internal/core"
)

// validatePDF checks that the uploaded bytes are a structurally sound PDF
// before the document is handed to the remote extraction service. The
// validator works on files, so the data takes a round trip through a temp
// file.
func validatePDF(data []byte) error {
	tempFile, err := os.CreateTemp("", "narration-upload-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file for pdf validation: %w", err)
	}

	tempPath := tempFile.Name()

	defer func() { _ = os.Remove(tempPath) }()

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write pdf data for validation: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close temp pdf file: %w", closeErr)
	}

	err = pdfapi.ValidateFile(tempPath, nil)
	if err != nil {
		return fmt.Errorf("%w: pdf validation failed: %w", core.ErrExtraction, err)
	}

	pageCount, err := pdfapi.PageCountFile(tempPath)
	if err != nil {
		return fmt.Errorf("%w: failed to count pdf pages: %w", core.ErrExtraction, err)
	}

	if pageCount == 0 {
		return fmt.Errorf("%w: pdf has no pages", core.ErrExtraction)
	}

	return nil
}
