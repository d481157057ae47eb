package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/abhisek/pdfquiz/internal/quiz"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/gin-gonic/gin"
)

// currentTemplate loads the valid template of doc, replying 409 when
// there is none.
func (s *Server) currentTemplate(c *gin.Context, doc *store.Document) (*store.Template, bool) {
	ctx := c.Request.Context()
	valid, err := s.templates.IsValid(ctx, doc.ID)
	if err != nil {
		s.internalError(c, "Failed to load template", err)
		return nil, false
	}
	if !valid {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Document has no valid question template; regenerate it"})
		return nil, false
	}
	tmpl, err := s.templates.Get(ctx, doc.ID)
	if err != nil || tmpl == nil {
		s.internalError(c, "Failed to load template", err)
		return nil, false
	}
	return tmpl, true
}

func (s *Server) startQuiz(c *gin.Context) {
	var req QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: fieldErrors(err)})
		return
	}

	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	tmpl, ok := s.currentTemplate(c, doc)
	if !ok {
		return
	}

	sel, err := s.selector.Select(c.Request.Context(), rotation.FromStore(tmpl), req.Count)
	if err != nil {
		s.internalError(c, "Failed to select questions", err)
		return
	}

	resp := QuizResponse{
		DocumentID:       doc.ID,
		TemplateRevision: tmpl.Revision,
		Indices:          sel.Indices,
		Questions:        make([]QuestionView, 0, len(sel.Indices)),
	}
	for _, i := range sel.Indices {
		q := tmpl.Questions[i]
		resp.Questions = append(resp.Questions, QuestionView{Index: i, Question: q.Prompt, Options: q.Options})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordAttempt(c *gin.Context) {
	var req AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: fieldErrors(err)})
		return
	}

	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	tmpl, ok := s.currentTemplate(c, doc)
	if !ok {
		return
	}
	if req.TemplateRevision != tmpl.Revision {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "The question template changed since this quiz started"})
		return
	}

	questions := make([]store.Question, 0, len(req.SelectedIndices))
	for _, i := range req.SelectedIndices {
		if i >= tmpl.Size() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Validation failed",
				Details: []FieldError{{Field: "selected_indices", Rule: "range", Message: "index outside the template"}},
			})
			return
		}
		questions = append(questions, tmpl.Questions[i])
	}

	// Grading goes through the same runner the terminal quiz uses; the
	// last answer records the attempt.
	runner, err := quiz.NewRunner(doc.ID, tmpl.Revision, questions, req.SelectedIndices,
		quiz.RecorderFunc(func(ctx context.Context, a *store.Attempt) error {
			return s.attempts.Record(ctx, a)
		}), quiz.Config{})
	if err != nil {
		s.internalError(c, "Failed to grade attempt", err)
		return
	}

	var warning string
	results := make([]QuestionResult, 0, len(req.Answers))
	for i, chosen := range req.Answers {
		fb, err := runner.Answer(c.Request.Context(), chosen)
		var pe *store.PersistError
		switch {
		case errors.As(err, &pe):
			// The grade stands; only the history write failed.
			s.log.Warn("attempt not saved", "document", doc.ID, "error", err)
			warning = "Attempt was graded but could not be saved"
		case err != nil:
			s.internalError(c, "Failed to record attempt", err)
			return
		}
		results = append(results, QuestionResult{
			Index:       req.SelectedIndices[i],
			Chosen:      fb.Chosen,
			Answer:      fb.AnswerIndex,
			Correct:     fb.Correct,
			Explanation: fb.Explanation,
		})
	}

	c.JSON(http.StatusCreated, AttemptResponse{Attempt: *runner.Attempt(), Results: results, Warning: warning})
}

func (s *Server) listAttempts(c *gin.Context) {
	doc, ok := s.loadDocument(c)
	if !ok {
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	attempts, err := s.attempts.ListByDocument(c.Request.Context(), doc.ID, limit)
	if err != nil {
		s.internalError(c, "Failed to list attempts", err)
		return
	}
	if attempts == nil {
		attempts = []store.Attempt{}
	}
	c.JSON(http.StatusOK, attempts)
}
