package notice

import (
	"fmt"
	"log/slog"

	"github.com/noticelens/noticelens/internal/extraction"
	"github.com/noticelens/noticelens/internal/summarizing"
)

// Service orchestrates the summarize pipeline: text extraction followed by
// AI summarization.
type Service struct {
	extractor  extraction.Extractor
	summarizer summarizing.Summarizer
}

// NewService creates a new Service
func NewService(extractor extraction.Extractor, summarizer summarizing.Summarizer) *Service {
	return &Service{
		extractor:  extractor,
		summarizer: summarizer,
	}
}

// Summarize extracts text from the uploaded document and generates a
// structured summary. Generation is never attempted when extraction fails,
// and the two failure classes stay distinguishable through the returned
// error chain. The document bytes are never persisted.
func (s *Service) Summarize(filename string, data []byte) (summarizing.Summary, error) {
	text, err := s.extractor.Extract(data)
	if err != nil {
		slog.Error("Failed to extract text from document",
			"filename", filename,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	summary, err := s.summarizer.Summarize(text)
	if err != nil {
		slog.Error("Failed to summarize notice",
			"filename", filename,
			"text_length", len(text),
			"error", err,
		)
		return nil, fmt.Errorf("summarizing notice: %w", err)
	}

	return summary, nil
}
