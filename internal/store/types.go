package store

import "time"

// Provenance points a question back at the part of the document it was
// generated from.
type Provenance struct {
	Chunk int    `json:"chunk"`
	Label string `json:"label,omitempty"`
}

// Question is one multiple-choice question. Answer indexes Options.
type Question struct {
	Prompt      string      `json:"question"`
	Options     []string    `json:"options"`
	Answer      int         `json:"answer"`
	Explanation string      `json:"explanation,omitempty"`
	Source      *Provenance `json:"source,omitempty"`
}

// Document is an uploaded PDF.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BlobKey   string    `json:"blob_key"`
	BlobURL   string    `json:"blob_url,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	PageCount int       `json:"page_count"`
	CoverKey  string    `json:"cover_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Template is the persisted question pool for one document. Revision
// changes on every save.
type Template struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	Revision    string     `json:"revision"`
	Questions   []Question `json:"questions"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Size returns the number of questions in the pool.
func (t *Template) Size() int { return len(t.Questions) }

// Attempt is a completed quiz run. SelectedIndices are template indices
// in presentation order; Answers holds the chosen option per question, or
// -1 when the question timed out.
type Attempt struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"document_id"`
	TemplateRevision string    `json:"template_revision,omitempty"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	SelectedIndices  []int     `json:"selected_indices"`
	Answers          []int     `json:"answers,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// LLMRequestEventData holds data for appending an LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID           int
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMUsageByPurpose aggregates LLM usage for one purpose.
type LLMUsageByPurpose struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMUsageByModel aggregates LLM usage for one model.
type LLMUsageByModel struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// QueryOpts controls listing queries.
type QueryOpts struct {
	// Limit caps the number of rows; zero means the repo default.
	Limit int
	// DocumentID filters by document when set.
	DocumentID string
}

func (o QueryOpts) limit(def int) int {
	if o.Limit <= 0 {
		return def
	}
	return o.Limit
}
