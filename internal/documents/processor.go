package documents

import (
	"context"
	"fmt"
	"strings"

	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
)

// extractFunc reads the text of one file.
type extractFunc func(ctx context.Context, path string) (string, error)

// Processor picks an extractor per file extension and concatenates the results.
type Processor struct {
	supported  map[string]bool
	extractors map[string]extractFunc
	kinds      map[string]string
	logger     logger.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithRunner replaces the command runner used for PDF extraction.
func WithRunner(r Runner, pdftotext string) Option {
	return func(p *Processor) {
		p.extractors[".pdf"] = pdfExtractor(r, pdftotext)
	}
}

// NewProcessor accepts the extensions listed in cfg.SupportedFileTypes.
func NewProcessor(cfg config.InvestigationConfig, log logger.Logger, opts ...Option) *Processor {
	types := cfg.SupportedFileTypes
	if len(types) == 0 {
		types = config.DefaultSupportedFileTypes
	}
	pdftotext := cfg.PdftotextPath
	if pdftotext == "" {
		pdftotext = "pdftotext"
	}

	p := &Processor{
		supported: make(map[string]bool, len(types)),
		extractors: map[string]extractFunc{
			".pdf":  pdfExtractor(execRunner{}, pdftotext),
			".docx": extractDOCX,
			".txt":  extractTXT,
			".xlsx": extractXLSX,
		},
		kinds: map[string]string{
			".pdf":  "PDF",
			".docx": "DOCX",
			".txt":  "TXT",
			".xlsx": "XLSX",
		},
		logger: logger.Component(log, "documents"),
	}
	for _, t := range types {
		p.supported[strings.ToLower(t)] = true
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger.Info("document processor initialized", map[string]interface{}{
		"types": strings.Join(types, ", "),
	})
	return p
}

// Validate checks every extension without opening any file.
func (p *Processor) Validate(docs []Document) error {
	if len(docs) == 0 {
		return apperrors.NewInputValidationError("no documents supplied")
	}
	for _, d := range docs {
		ext := d.Extension()
		if !p.supported[ext] || p.extractors[ext] == nil {
			unsupported := &UnsupportedFormatError{Filename: d.BaseName(), Extension: ext}
			p.logger.Warn("unsupported document rejected", map[string]interface{}{
				"filename":  unsupported.Filename,
				"extension": unsupported.Extension,
			})
			return apperrors.NewUnsupportedFormatError(unsupported.Filename, unsupported.Extension, unsupported)
		}
	}
	return nil
}

// Extract returns the text of docs in order, each block headed by
// "--- CONTENT FROM <name> ---". A file that cannot be read contributes an
// inline error marker instead of failing the batch; only a cancelled context
// or an unvalidated extension fails the whole call.
func (p *Processor) Extract(ctx context.Context, docs []Document) (string, error) {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("extract documents: %w", err)
		}

		name := d.BaseName()
		ext := d.Extension()
		extract, ok := p.extractors[ext]
		if !ok || !p.supported[ext] {
			return "", &UnsupportedFormatError{Filename: name, Extension: ext}
		}

		text, err := extract(ctx, d.Path)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("extract %s: %w", name, ctx.Err())
			}
			p.logger.Error("failed to extract document", map[string]interface{}{
				"filename": name,
				"error":    err,
			})
			text = fmt.Sprintf("[Error processing %s: %s - The file may be corrupt or unreadable.]", p.kinds[ext], name)
		} else {
			p.logger.Debug("extracted document", map[string]interface{}{
				"filename":   name,
				"characters": len(text),
			})
		}

		parts = append(parts, fmt.Sprintf("--- CONTENT FROM %s ---\n%s", name, text))
	}
	return strings.Join(parts, "\n\n"), nil
}
