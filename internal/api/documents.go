package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/jobs"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/gin-gonic/gin"
)

// Job kinds.
const (
	KindIngest     = "ingest"
	KindRegenerate = "regenerate"
)

func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "A PDF file is required in the \"file\" field", Details: err.Error()})
		return
	}
	if fh.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "File is too large"})
		return
	}

	pages, err := ingest.ParsePages(c.PostForm("pages"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid page range", Details: err.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Could not read upload", Details: err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Could not read upload", Details: err.Error()})
		return
	}
	if !strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF-") {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Message: "Upload is not a PDF"})
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = filepath.Base(fh.Filename)
	}

	doc, err := s.ingest.Register(c.Request.Context(), ingest.Upload{Name: name, Data: data})
	if err != nil {
		s.log.Error("failed to register document", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: ingest.UserMessage(err)})
		return
	}

	jobID := s.queue.Enqueue(jobs.Job{
		DocumentID: doc.ID,
		Kind:       KindIngest,
		Run: func(ctx context.Context) (string, error) {
			report, err := s.ingest.Build(ctx, doc.ID, pages)
			return saveWarning(report), err
		},
	})

	c.JSON(http.StatusAccepted, UploadResponse{JobID: jobID, DocumentID: doc.ID})
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.docs.List(c.Request.Context())
	if err != nil {
		s.internalError(c, "Failed to list documents", err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp, err := s.documentResponse(c.Request.Context(), d)
		if err != nil {
			s.internalError(c, "Failed to load template", err)
			return
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDocument(c *gin.Context) {
	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	resp, err := s.documentResponse(c.Request.Context(), *doc)
	if err != nil {
		s.internalError(c, "Failed to load template", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteDocument(c *gin.Context) {
	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Document not found"})
			return
		}
		s.internalError(c, "Failed to delete document", err)
		return
	}

	for _, key := range []string{doc.BlobKey, doc.CoverKey} {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete blob", "document", doc.ID, "key", key, "error", err)
		}
	}
	if err := s.selector.Invalidate(ctx, doc.ID); err != nil {
		s.log.Warn("failed to clear rotation state", "document", doc.ID, "error", err)
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) regenerate(c *gin.Context) {
	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	jobID := s.queue.Enqueue(jobs.Job{
		DocumentID: doc.ID,
		Kind:       KindRegenerate,
		Run: func(ctx context.Context) (string, error) {
			report, err := s.ingest.Regenerate(ctx, doc.ID)
			return saveWarning(report), err
		},
	})
	c.JSON(http.StatusAccepted, UploadResponse{JobID: jobID, DocumentID: doc.ID})
}

// saveWarning describes questions that were generated but not stored.
func saveWarning(report *ingest.Report) string {
	if report == nil || report.SaveWarning == nil {
		return ""
	}
	return "questions were generated but could not be saved: " + report.SaveWarning.Error()
}

// loadDocument fetches the :id document, replying 404 when it is missing.
func (s *Server) loadDocument(c *gin.Context) (*store.Document, bool) {
	doc, err := s.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, "Failed to load document", err)
		return nil, false
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Document not found"})
		return nil, false
	}
	return doc, true
}

func (s *Server) documentResponse(ctx context.Context, d store.Document) (DocumentResponse, error) {
	resp := DocumentResponse{Document: d}
	tmpl, err := s.templates.Get(ctx, d.ID)
	if err != nil || tmpl == nil {
		return resp, err
	}
	valid, err := s.templates.IsValid(ctx, d.ID)
	if err != nil {
		return resp, err
	}
	resp.Template = &TemplateStatus{
		Revision:      tmpl.Revision,
		QuestionCount: tmpl.Size(),
		GeneratedAt:   tmpl.GeneratedAt,
		ExpiresAt:     tmpl.ExpiresAt,
		Valid:         valid,
	}
	return resp, nil
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msg})
}
