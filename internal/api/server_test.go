package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/pdfquiz/internal/blob"
	"github.com/abhisek/pdfquiz/internal/ingest"
	"github.com/abhisek/pdfquiz/internal/jobs"
	"github.com/abhisek/pdfquiz/internal/llm"
	"github.com/abhisek/pdfquiz/internal/pdftext/pdftest"
	"github.com/abhisek/pdfquiz/internal/quizgen"
	"github.com/abhisek/pdfquiz/internal/rotation"
	"github.com/abhisek/pdfquiz/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store  *store.Store
	blobs  *blob.FSStore
	mock   *llm.MockProvider
	queue  *jobs.Queue
	router *gin.Engine
}

func quizJSON(n int) json.RawMessage {
	type item struct {
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		Answer      int      `json:"answer"`
		Explanation string   `json:"explanation"`
	}
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			Question:    fmt.Sprintf("Question number %d?", i),
			Options:     []string{"a", "b", "c", "d"},
			Answer:      i % 4,
			Explanation: fmt.Sprintf("because %d", i),
		}
	}
	b, _ := json.Marshal(map[string]any{"questions": items})
	return b
}

func newGenerator(p llm.Provider) *quizgen.Generator {
	cfg := quizgen.DefaultConfig()
	cfg.Sleep = func(context.Context, time.Duration) error { return nil }
	return quizgen.New(p, cfg, nil)
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	mock := llm.NewMockProvider()
	mock.Fallback = &llm.MockResponse{Content: quizJSON(8)}
	gen := newGenerator(mock)

	selector := rotation.NewSelector(rotation.NewMemoryKV())
	svc := ingest.NewService(s.Documents(), s.Templates(), blobs, gen, selector, ingest.Config{MaxChunkSize: 500}, nil)
	queue := jobs.NewQueue(context.Background(), nil)

	deps := Deps{
		Store:    s,
		Blobs:    blobs,
		Ingest:   svc,
		Queue:    queue,
		Selector: selector,
	}
	for _, o := range opts {
		o(&deps)
	}
	srv := NewServer(deps)
	return &testEnv{store: s, blobs: blobs, mock: mock, queue: queue, router: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ingestDoc uploads a PDF and waits for its ingest job.
func (e *testEnv) ingestDoc(t *testing.T) UploadResponse {
	t.Helper()
	w := e.upload(t, "notes.pdf", pdftest.Build("Photosynthesis turns light into chemical energy."), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	e.queue.Wait()
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/documents", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadAndIngest(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)

	assert.NotEmpty(t, up.JobID)
	assert.NotEmpty(t, up.DocumentID)

	w := env.do(t, http.MethodGet, "/jobs/"+up.JobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[jobs.Info](t, w)
	assert.Equal(t, jobs.StatusDone, info.Status)
	assert.Equal(t, up.DocumentID, info.DocumentID)
	assert.Equal(t, KindIngest, info.Kind)
	assert.Empty(t, info.Warning)

	w = env.do(t, http.MethodGet, "/documents/"+up.DocumentID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[DocumentResponse](t, w)
	assert.Equal(t, "notes.pdf", doc.Name)
	assert.Equal(t, 1, doc.PageCount)
	require.NotNil(t, doc.Template)
	assert.True(t, doc.Template.Valid)
	assert.Equal(t, 8, doc.Template.QuestionCount)

	w = env.do(t, http.MethodGet, "/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]DocumentResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, up.DocumentID, list[0].ID)
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)

	w := env.upload(t, "", nil, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload(t, "notes.txt", []byte("just text"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = env.upload(t, "a.pdf", pdftest.Build("x"), map[string]string{"pages": "9-2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	docs, err := env.store.Documents().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected uploads must not register documents")
}

func TestUpload_FailedIngestJob(t *testing.T) {
	env := newTestEnv(t)
	w := env.upload(t, "scan.pdf", pdftest.Build(""), map[string]string{"name": "Scanned"})
	require.Equal(t, http.StatusAccepted, w.Code)
	up := decode[UploadResponse](t, w)
	env.queue.Wait()

	info := decode[jobs.Info](t, env.do(t, http.MethodGet, "/jobs/"+up.JobID, nil))
	assert.Equal(t, jobs.StatusFailed, info.Status)
	assert.Contains(t, info.Error, "no text")

	doc := decode[DocumentResponse](t, env.do(t, http.MethodGet, "/documents/"+up.DocumentID, nil))
	assert.Equal(t, "Scanned", doc.Name)
	assert.Nil(t, doc.Template)

	w = env.do(t, http.MethodPost, "/documents/"+up.DocumentID+"/quiz", QuizRequest{Count: 3})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// lockedTemplates refuses every template write.
type lockedTemplates struct {
	store.TemplateRepo
}

func (lockedTemplates) Save(context.Context, string, []store.Question) (string, error) {
	return "", &store.PersistError{Op: "save template", Err: errors.New("database is locked")}
}

func TestUpload_UnsavedTemplateWarning(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		mock := llm.NewMockProvider()
		mock.Fallback = &llm.MockResponse{Content: quizJSON(8)}
		d.Ingest = ingest.NewService(d.Store.Documents(), lockedTemplates{d.Store.Templates()}, d.Blobs,
			newGenerator(mock), d.Selector, ingest.Config{MaxChunkSize: 500}, nil)
	})
	up := env.ingestDoc(t)

	info := decode[jobs.Info](t, env.do(t, http.MethodGet, "/jobs/"+up.JobID, nil))
	assert.Equal(t, jobs.StatusDone, info.Status)
	assert.Contains(t, info.Warning, "could not be saved")
	assert.Contains(t, info.Warning, "database is locked")

	w := env.do(t, http.MethodPost, "/documents/"+up.DocumentID+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	regen := decode[UploadResponse](t, w)
	env.queue.Wait()

	info = decode[jobs.Info](t, env.do(t, http.MethodGet, "/jobs/"+regen.JobID, nil))
	assert.Equal(t, KindRegenerate, info.Kind)
	assert.Contains(t, info.Warning, "database is locked")
}

func TestQuizAndAttempt(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)
	base := "/documents/" + up.DocumentID

	w := env.do(t, http.MethodPost, base+"/quiz", QuizRequest{Count: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"answer"`, "quiz must not leak answers")
	q := decode[QuizResponse](t, w)
	require.Len(t, q.Questions, 3)
	require.Len(t, q.Indices, 3)
	for i, qv := range q.Questions {
		assert.Equal(t, q.Indices[i], qv.Index)
		assert.Len(t, qv.Options, 4)
	}

	// Answer the first correctly, the second wrong, time out the third.
	answers := []int{q.Indices[0] % 4, (q.Indices[1] + 1) % 4, -1}
	w = env.do(t, http.MethodPost, base+"/attempts", AttemptRequest{
		TemplateRevision: q.TemplateRevision,
		SelectedIndices:  q.Indices,
		Answers:          answers,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[AttemptResponse](t, w)
	assert.NotEmpty(t, att.ID)
	assert.Empty(t, att.Warning)
	assert.Equal(t, 1, att.Score)
	assert.Equal(t, 3, att.TotalQuestions)
	assert.Equal(t, answers, att.Answers)
	require.Len(t, att.Results, 3)
	assert.True(t, att.Results[0].Correct)
	assert.False(t, att.Results[1].Correct)
	assert.Equal(t, -1, att.Results[2].Chosen)
	assert.Equal(t, fmt.Sprintf("because %d", q.Indices[0]), att.Results[0].Explanation)

	w = env.do(t, http.MethodGet, base+"/attempts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]store.Attempt](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, att.ID, list[0].ID)
}

// brokenAttempts fails every write the way a full disk would.
type brokenAttempts struct {
	store.AttemptRepo
}

func (brokenAttempts) Record(context.Context, *store.Attempt) error {
	return &store.PersistError{Op: "record attempt", Err: errors.New("disk I/O error")}
}

func TestAttempt_UnsavedStillGraded(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Attempts = brokenAttempts{AttemptRepo: d.Store.Attempts()}
	})
	up := env.ingestDoc(t)
	base := "/documents/" + up.DocumentID

	q := decode[QuizResponse](t, env.do(t, http.MethodPost, base+"/quiz", QuizRequest{Count: 2}))
	require.Len(t, q.Indices, 2)

	w := env.do(t, http.MethodPost, base+"/attempts", AttemptRequest{
		TemplateRevision: q.TemplateRevision,
		SelectedIndices:  q.Indices,
		Answers:          []int{q.Indices[0] % 4, (q.Indices[1] + 1) % 4},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[AttemptResponse](t, w)
	assert.NotEmpty(t, att.Warning)
	assert.Equal(t, 1, att.Score)
	assert.Equal(t, 2, att.TotalQuestions)
	require.Len(t, att.Results, 2)
	assert.True(t, att.Results[0].Correct)

	list := decode[[]store.Attempt](t, env.do(t, http.MethodGet, base+"/attempts", nil))
	assert.Empty(t, list)
}

func TestQuiz_Validation(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)
	base := "/documents/" + up.DocumentID

	tests := []struct {
		name string
		path string
		body any
		want int
		rule string
	}{
		{"zero count", base + "/quiz", QuizRequest{Count: 0}, http.StatusBadRequest, "required"},
		{"huge count", base + "/quiz", QuizRequest{Count: 1000}, http.StatusBadRequest, "max"},
		{"unknown document", "/documents/nope/quiz", QuizRequest{Count: 2}, http.StatusNotFound, ""},
		{"length mismatch", base + "/attempts", AttemptRequest{TemplateRevision: "r", SelectedIndices: []int{0, 1}, Answers: []int{0}}, http.StatusBadRequest, "eqlen"},
		{"negative index", base + "/attempts", AttemptRequest{TemplateRevision: "r", SelectedIndices: []int{-2}, Answers: []int{0}}, http.StatusBadRequest, "min"},
		{"duplicate index", base + "/attempts", AttemptRequest{TemplateRevision: "r", SelectedIndices: []int{1, 1}, Answers: []int{0, 0}}, http.StatusBadRequest, "unique"},
		{"bad option", base + "/attempts", AttemptRequest{TemplateRevision: "r", SelectedIndices: []int{1}, Answers: []int{-5}}, http.StatusBadRequest, "option"},
		{"missing revision", base + "/attempts", AttemptRequest{SelectedIndices: []int{1}, Answers: []int{0}}, http.StatusBadRequest, "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.rule != "" {
				assert.Contains(t, w.Body.String(), `"rule":"`+tt.rule+`"`)
			}
		})
	}
}

func TestAttempt_StaleRevisionAndRange(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)
	base := "/documents/" + up.DocumentID

	w := env.do(t, http.MethodPost, base+"/attempts", AttemptRequest{
		TemplateRevision: "old-revision",
		SelectedIndices:  []int{0},
		Answers:          []int{0},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	tmpl, err := env.store.Templates().Get(context.Background(), up.DocumentID)
	require.NoError(t, err)
	w = env.do(t, http.MethodPost, base+"/attempts", AttemptRequest{
		TemplateRevision: tmpl.Revision,
		SelectedIndices:  []int{tmpl.Size()},
		Answers:          []int{0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	attempts, err := env.store.Attempts().ListByDocument(context.Background(), up.DocumentID, 10)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestRegenerate(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)
	before, err := env.store.Templates().Get(context.Background(), up.DocumentID)
	require.NoError(t, err)

	env.mock.Fallback = &llm.MockResponse{Content: quizJSON(5)}
	w := env.do(t, http.MethodPost, "/documents/"+up.DocumentID+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decode[UploadResponse](t, w)
	env.queue.Wait()

	info, ok := env.queue.Get(resp.JobID)
	require.True(t, ok)
	assert.Equal(t, jobs.StatusDone, info.Status)
	assert.Equal(t, KindRegenerate, info.Kind)

	after, err := env.store.Templates().Get(context.Background(), up.DocumentID)
	require.NoError(t, err)
	assert.NotEqual(t, before.Revision, after.Revision)
	assert.Equal(t, 5, after.Size())
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	up := env.ingestDoc(t)
	ctx := context.Background()

	doc, err := env.store.Documents().Get(ctx, up.DocumentID)
	require.NoError(t, err)

	w := env.do(t, http.MethodDelete, "/documents/"+up.DocumentID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/documents/"+up.DocumentID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err = env.blobs.Open(ctx, doc.BlobKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	tmpl, err := env.store.Templates().Get(ctx, up.DocumentID)
	require.NoError(t, err)
	assert.Nil(t, tmpl)

	w = env.do(t, http.MethodDelete, "/documents/"+up.DocumentID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
