// Package ingest turns an uploaded PDF into a stored question template.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/chunker"
	"github.com/abhisek/pdfquiz/internal/pdftext"
	"github.com/abhisek/pdfquiz/internal/quizgen"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/google/uuid"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageRegister Stage = "register"
	StageLoad     Stage = "load"
	StageExtract  Stage = "extract"
	StageGenerate Stage = "generate"
)

// StageError is a fatal pipeline failure.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Generator produces questions from text chunks.
type Generator interface {
	Generate(ctx context.Context, chunks []string) (*quizgen.Result, error)
}

// Invalidator drops rotation history for a document.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID string) error
}

// Config tunes the pipeline.
type Config struct {
	MaxChunkSize int
	MaxChars     int
}

// Pages selects a page range. The zero value means every page.
type Pages struct {
	From, To int
}

// ParsePages parses "a-b", "a-" or "a". An empty string means every page.
func ParsePages(s string) (Pages, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pages{}, nil
	}
	lo, hi, ranged := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil || from < 1 {
		return Pages{}, fmt.Errorf("invalid page range %q", s)
	}
	if !ranged {
		return Pages{From: from, To: from}, nil
	}
	if strings.TrimSpace(hi) == "" {
		return Pages{From: from}, nil
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || to < from {
		return Pages{}, fmt.Errorf("invalid page range %q", s)
	}
	return Pages{From: from, To: to}, nil
}

// Upload is a PDF to ingest.
type Upload struct {
	Name  string
	Data  []byte
	Pages Pages
}

// Report summarizes a pipeline run.
type Report struct {
	Document   *store.Document
	TemplateID string
	Chunks     int
	Questions  int
	Duplicates int
	Rejected   int
	Failures   []quizgen.ChunkFailure
	Truncated  bool
	// SaveWarning is set when the questions were generated but could not
	// be stored. The document stays, without a valid template.
	SaveWarning error
}

// Service runs the ingest pipeline.
type Service struct {
	docs      store.DocumentRepo
	templates store.TemplateRepo
	blobs     blob.Store
	gen       Generator
	rotation  Invalidator
	cfg       Config
	log       *slog.Logger
}

// NewService wires a Service. rotation may be nil.
func NewService(docs store.DocumentRepo, templates store.TemplateRepo, blobs blob.Store,
	gen Generator, rotation Invalidator, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		docs:      docs,
		templates: templates,
		blobs:     blobs,
		gen:       gen,
		rotation:  rotation,
		cfg:       cfg,
		log:       log,
	}
}

// Ingest stores the PDF, registers the document and builds its template.
// A failure before the document is registered leaves nothing behind.
// Failures after that leave the document in place so it can be
// regenerated.
func (s *Service) Ingest(ctx context.Context, up Upload) (*Report, error) {
	doc, err := s.Register(ctx, up)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, doc, up.Data, up.Pages)
}

// Register stores the PDF and creates its document row without
// generating questions. The blob is removed again if the row can't be
// created.
func (s *Service) Register(ctx context.Context, up Upload) (*store.Document, error) {
	if len(up.Data) == 0 {
		return nil, &StageError{Stage: StageUpload, Err: errors.New("empty file")}
	}

	id := uuid.NewString()
	key := blob.DocumentKey(id)
	ref, err := s.blobs.Put(ctx, key, bytes.NewReader(up.Data), "application/pdf")
	if err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}

	doc := &store.Document{
		ID:        id,
		Name:      up.Name,
		BlobKey:   ref.Key,
		BlobURL:   ref.URL,
		SizeBytes: ref.Size,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn("failed to remove orphaned blob", "key", key, "error", derr)
		}
		return nil, &StageError{Stage: StageRegister, Err: err}
	}

	s.log.Info("document registered", "document", doc.ID, "name", doc.Name, "bytes", ref.Size)
	return doc, nil
}

// Build generates the template of a registered document from its stored
// PDF.
func (s *Service) Build(ctx context.Context, documentID string, pages Pages) (*Report, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	if doc == nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("document %s: %w", documentID, store.ErrNotFound)}
	}
	data, err := blob.ReadAll(ctx, s.blobs, doc.BlobKey)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	return s.build(ctx, doc, data, pages)
}

// Regenerate rebuilds the template of an existing document.
func (s *Service) Regenerate(ctx context.Context, documentID string) (*Report, error) {
	return s.Build(ctx, documentID, Pages{})
}

func (s *Service) build(ctx context.Context, doc *store.Document, data []byte, pages Pages) (*Report, error) {
	log := s.log.With("document", doc.ID)
	report := &Report{Document: doc}

	text, err := pdftext.ExtractPages(bytes.NewReader(data), int64(len(data)), pages.From, pages.To,
		pdftext.Options{MaxChars: s.cfg.MaxChars})
	if err != nil {
		return report, &StageError{Stage: StageExtract, Err: err}
	}
	report.Truncated = text.Truncated
	if text.Truncated {
		log.Warn("extracted text truncated", "max_chars", s.cfg.MaxChars)
	}
	if doc.PageCount != text.PageCount {
		if err := s.docs.SetPageCount(ctx, doc.ID, text.PageCount); err != nil {
			log.Warn("failed to record page count", "error", err)
		} else {
			doc.PageCount = text.PageCount
		}
	}

	chunks := chunker.Chunk(text.Text, s.cfg.MaxChunkSize)
	report.Chunks = len(chunks)
	log.Info("generating questions", "chunks", len(chunks), "chars", len(text.Text))

	res, err := s.gen.Generate(ctx, chunks)
	if res != nil {
		report.Failures = res.Failures
		report.Rejected = res.Rejected
	}
	if err != nil {
		return report, &StageError{Stage: StageGenerate, Err: err}
	}

	questions := quizgen.Dedupe(res.Questions)
	report.Duplicates = len(res.Questions) - len(questions)
	report.Questions = len(questions)

	id, err := s.templates.Save(ctx, doc.ID, questions)
	if err != nil {
		log.Warn("failed to save template", "error", err)
		report.SaveWarning = err
		return report, nil
	}
	report.TemplateID = id

	if s.rotation != nil {
		if err := s.rotation.Invalidate(ctx, doc.ID); err != nil {
			log.Warn("failed to reset rotation state", "error", err)
		}
	}

	log.Info("template saved", "template", id, "questions", len(questions),
		"duplicates", report.Duplicates, "failed_chunks", len(report.Failures))
	return report, nil
}

// UserMessage renders a pipeline error for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pdftext.ErrNoText):
		return "No text could be extracted from this PDF. Scanned documents are not supported."
	case errors.Is(err, quizgen.ErrAllChunksFailed):
		return "Question generation failed for every part of the document. Check the LLM provider and try again."
	case errors.Is(err, quizgen.ErrNoQuestions):
		return "The document produced no usable questions."
	case errors.Is(err, store.ErrNotFound):
		return "Document not found."
	}
	var se *StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("Failed to %s the document: %v", se.Stage, se.Err)
	}
	return err.Error()
}
