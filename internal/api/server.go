// Package api serves documents, quizzes and attempts over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/jobs"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxUpload caps the size of an uploaded PDF.
const DefaultMaxUpload = 32 << 20

// Ingester is the part of the ingest pipeline the API drives.
type Ingester interface {
	Register(ctx context.Context, up ingest.Upload) (*store.Document, error)
	Build(ctx context.Context, documentID string, pages ingest.Pages) (*ingest.Report, error)
	Regenerate(ctx context.Context, documentID string) (*ingest.Report, error)
}

// Deps are the services behind the API.
type Deps struct {
	Store    *store.Store
	Blobs    blob.Store
	Ingest   Ingester
	Queue    *jobs.Queue
	Selector *rotation.Selector
	Logger   *slog.Logger

	// Attempts overrides the store's attempt repository when set.
	Attempts store.AttemptRepo

	// MaxUpload caps upload size. Zero uses DefaultMaxUpload.
	MaxUpload int64
}

// Server holds the handlers.
type Server struct {
	docs      store.DocumentRepo
	templates store.TemplateRepo
	attempts  store.AttemptRepo
	blobs     blob.Store
	ingest    Ingester
	queue     *jobs.Queue
	selector  *rotation.Selector
	validate  *validator.Validate
	log       *slog.Logger
	maxUpload int64
}

// NewServer builds a Server from deps.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	maxUpload := d.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	attempts := d.Attempts
	if attempts == nil {
		attempts = d.Store.Attempts()
	}
	return &Server{
		docs:      d.Store.Documents(),
		templates: d.Store.Templates(),
		attempts:  attempts,
		blobs:     d.Blobs,
		ingest:    d.Ingest,
		queue:     d.Queue,
		selector:  d.Selector,
		validate:  newValidator(),
		log:       log,
		maxUpload: maxUpload,
	}
}

// Router returns the gin engine with middleware and routes installed.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.maxUpload

	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.log))
	router.Use(SecurityMiddleware())

	router.GET("/healthz", s.health)

	docs := router.Group("/documents")
	{
		docs.POST("", s.uploadDocument)
		docs.GET("", s.listDocuments)
		docs.GET("/:id", s.getDocument)
		docs.DELETE("/:id", s.deleteDocument)
		docs.POST("/:id/regenerate", s.regenerate)
		docs.POST("/:id/quiz", s.startQuiz)
		docs.POST("/:id/attempts", s.recordAttempt)
		docs.GET("/:id/attempts", s.listAttempts)
	}

	router.GET("/jobs/:id", s.getJob)

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pdfquiz",
	})
}

func (s *Server) getJob(c *gin.Context) {
	info, ok := s.queue.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Job not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}
