// Package extract implements the Extraction Adapter: it turns raw
// uploaded bytes into structured document content. Markdown and plain
// text are parsed locally; PDFs are validated and delegated to a remote
// extraction service.
package extract

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/gabriel-vasile/mimetype"

	"github.com/book-expert/narration-service/internal/core"
)

// MIME types handled by the dispatcher.
const (
	mimePDF      = "application/pdf"
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
)

// RemoteExtractor is the part of Client the dispatcher depends on,
// separated so tests can substitute a stub service.
type RemoteExtractor interface {
	Extract(ctx context.Context, data []byte) (*core.Document, error)
}

// Service routes uploads to the right extractor by sniffing the content
// type. It implements core.Extractor.
type Service struct {
	remote RemoteExtractor
	log    *logger.Logger
}

// NewService creates the dispatching extractor. The remote extractor may
// be nil, in which case PDF uploads are rejected as unsupported.
func NewService(remote RemoteExtractor, log *logger.Logger) *Service {
	return &Service{
		remote: remote,
		log:    log,
	}
}

// Extract produces a structured document from raw uploaded bytes. It
// fails with core.ErrExtraction on unreadable or unsupported input.
func (s *Service) Extract(ctx context.Context, data []byte) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", core.ErrExtraction)
	}

	kind := mimetype.Detect(data)

	switch {
	case kind.Is(mimePDF):
		return s.extractPDF(ctx, data)
	case kind.Is(mimeText) || kind.Is(mimeMarkdown):
		return s.extractText(data)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", core.ErrExtraction, kind.String())
	}
}

func (s *Service) extractPDF(ctx context.Context, data []byte) (*core.Document, error) {
	err := validatePDF(data)
	if err != nil {
		return nil, err
	}

	if s.remote == nil {
		return nil, fmt.Errorf("%w: no extraction service configured for pdf input", core.ErrExtraction)
	}

	s.log.Info("Delegating PDF extraction (%d bytes)", len(data))

	doc, err := s.remote.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *Service) extractText(data []byte) (*core.Document, error) {
	if !validText(data) {
		return nil, fmt.Errorf("%w: text upload is not valid UTF-8", core.ErrExtraction)
	}

	parsed := parseMarkdown(string(data))

	doc := &core.Document{
		Title:    parsed.title,
		Abstract: parsed.abstract,
		Sections: make([]core.Section, 0, len(parsed.sections)),
	}

	for _, section := range parsed.sections {
		doc.Sections = append(doc.Sections, core.Section{
			Heading: section.heading,
			Body:    section.body,
		})
	}

	return doc, nil
}
