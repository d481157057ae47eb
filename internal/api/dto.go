package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// QuizRequest asks for a quiz of Count questions.
type QuizRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// AttemptRequest submits the answers to a quiz. Answers[i] is the chosen
// option for SelectedIndices[i], or -1 for a timed-out question.
type AttemptRequest struct {
	TemplateRevision string `json:"template_revision" validate:"required"`
	SelectedIndices  []int  `json:"selected_indices" validate:"required,min=1,unique,dive,min=0"`
	Answers          []int  `json:"answers" validate:"required,dive,option"`
}

// UploadResponse acknowledges an accepted upload or regeneration.
type UploadResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
}

// TemplateStatus summarizes a document's question template.
type TemplateStatus struct {
	Revision      string    `json:"revision"`
	QuestionCount int       `json:"question_count"`
	GeneratedAt   time.Time `json:"generated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Valid         bool      `json:"valid"`
}

// DocumentResponse is a document with its template status.
type DocumentResponse struct {
	store.Document
	Template *TemplateStatus `json:"template,omitempty"`
}

// QuestionView is a question as shown to the quiz taker.
type QuestionView struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizResponse is a rotation-selected set of questions.
type QuizResponse struct {
	DocumentID       string         `json:"document_id"`
	TemplateRevision string         `json:"template_revision"`
	Indices          []int          `json:"indices"`
	Questions        []QuestionView `json:"questions"`
}

// QuestionResult grades one answered question.
type QuestionResult struct {
	Index       int    `json:"index"`
	Chosen      int    `json:"chosen"`
	Answer      int    `json:"answer"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// AttemptResponse is a recorded attempt with per-question grading.
type AttemptResponse struct {
	store.Attempt
	Results []QuestionResult `json:"results"`
	// Warning is set when the attempt was graded but could not be saved.
	Warning string `json:"warning,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// An option index, or -1 for no answer.
	v.RegisterValidation("option", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= -1
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(AttemptRequest)
		if len(req.Answers) != len(req.SelectedIndices) {
			sl.ReportError(req.Answers, "answers", "Answers", "eqlen", "")
		}
	}, AttemptRequest{})

	return v
}

// fieldErrors flattens validator errors for a response body.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "option":
		return "must be an option index or -1"
	case "eqlen":
		return "must have one entry per selected question"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
