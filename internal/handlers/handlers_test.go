package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/repositories"
	"alfredoptarigan/resumeiq/internal/services"
	"alfredoptarigan/resumeiq/internal/testutil"
)

const (
	testResume = "Jane Doe\nSenior Go engineer. Built payment APIs in Go & PostgreSQL."
	testJD     = "Backend Developer with Go and Kubernetes experience."
)

type recordingWorker struct {
	mu  sync.Mutex
	ids []string
}

func (w *recordingWorker) Start(context.Context) {}
func (w *recordingWorker) Stop()                 {}
func (w *recordingWorker) EnqueueRun(runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, runID)
}

type fixtureOptions struct {
	apiKey string
	limit  fiber.Handler
}

type handlerFixture struct {
	app      *fiber.App
	analyzer services.AnalyzerService
	worker   *recordingWorker
	exporter services.ExportService

	llmCalls  atomic.Int32
	llmStatus atomic.Int32
	llmReply  atomic.Value
}

func newHandlerFixture(t *testing.T, opts fixtureOptions) *handlerFixture {
	t.Helper()
	f := &handlerFixture{worker: &recordingWorker{}}
	f.llmStatus.Store(http.StatusOK)
	f.llmReply.Store(`{"match_score": 84, "summary_feedback": "Strong match"}`)

	cloudSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.llmCalls.Add(1)
		if status := int(f.llmStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": f.llmReply.Load().(string)}}},
		})
	}))
	t.Cleanup(cloudSrv.Close)

	localSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		default:
			w.Write([]byte(`{"response":"{\"match_score\": 55}","done":true}`))
		}
	}))
	t.Cleanup(localSrv.Close)

	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = "sk-test"
	}
	if apiKey == "none" {
		apiKey = ""
	}

	db := testutil.NewTestDB(t)
	cloud := services.NewOpenAIBackend(cloudSrv.URL, apiKey, cloudSrv.Client())
	local := services.NewOllamaBackend(localSrv.URL, "llama3", localSrv.Client())

	templates, err := services.NewTemplateStore()
	require.NoError(t, err)
	table, err := services.LoadBenchmarkTable()
	require.NoError(t, err)

	dispatcher := services.NewDispatcher([]services.GenerationBackend{cloud, local}, nil, services.DispatchOptions{Temperature: 0.7, MaxTokens: 2000}, nil)
	settings, err := services.NewSettingsStore(repositories.NewSettingsRepository(db), dispatcher, models.Settings{LocalModel: "llama3", CloudModel: "gpt-4o-mini"})
	require.NoError(t, err)

	extractor := services.NewTextExtractor()
	profiles := services.NewProfileService(repositories.NewProfileRepository(db), extractor, nil, nil)
	f.analyzer = services.NewAnalyzerService(repositories.NewSessionRepository(db), templates, services.NewPromptBuilder(templates, table), dispatcher, settings, profiles, nil)
	f.exporter = services.NewExportService(services.NewStorageService(t.TempDir()), "/api/v1/exports")

	f.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(f.app.Group("/api/v1"), &Handlers{
		Analyze:  NewAnalyzeHandler(f.analyzer, services.NewStatusService(cloud, local)),
		Session:  NewSessionHandler(f.analyzer, f.worker),
		Upload:   NewUploadHandler(extractor, 1<<20),
		Profile:  NewProfileHandler(profiles, 1<<20),
		Settings: NewSettingsHandler(settings),
		Export:   NewExportHandler(f.exporter),
	}, opts.limit)

	return f
}

func (f *handlerFixture) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var body map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(method, path string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

type uploadPart struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, path string, parts ...uploadPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func reviewerPayload() map[string]any {
	return map[string]any{
		"feature":         "reviewer",
		"resume":          testResume,
		"job_description": testJD,
	}
}

func TestHealthFeaturesAndStatus(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/features", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["features"], 13)

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/models/status", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cloud := body["cloud"].(map[string]any)
	local := body["local"].(map[string]any)
	assert.Equal(t, "openai", cloud["provider"])
	assert.Equal(t, true, cloud["configured"])
	assert.Equal(t, true, local["available"])
	assert.Equal(t, []any{"llama3:latest"}, local["models"])
}

func TestAnalyze_Success(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/analyze", reviewerPayload()))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "json", body["format"])
	assert.Equal(t, "cloud", body["backend"])
	assert.Equal(t, 84.0, body["data"].(map[string]any)["match_score"])
}

func TestAnalyze_TextReplyKeepsFormatDiscriminator(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	f.llmReply.Store("Looks like a solid resume overall.")

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/analyze", reviewerPayload()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text", body["format"])
	assert.Equal(t, "Looks like a solid resume overall.", body["data"])
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		opts       fixtureOptions
		llmStatus  int
		payload    map[string]any
		wantStatus int
		wantType   string
		wantCalls  int32
	}{
		{
			name:       "missing feature",
			payload:    map[string]any{"resume": testResume, "job_description": testJD},
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "unknown feature",
			payload:    map[string]any{"feature": "horoscope", "resume": testResume, "job_description": testJD},
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "invalid tone",
			payload:    map[string]any{"feature": "cover_letter", "resume": testResume, "job_description": testJD, "tone": "grumpy"},
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "empty resume",
			payload:    map[string]any{"feature": "reviewer", "resume": "  ", "job_description": testJD},
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "online-only feature on local backend",
			payload:    map[string]any{"feature": "cover_letter", "backend": "local", "resume": testResume, "job_description": testJD},
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "missing cloud key",
			opts:       fixtureOptions{apiKey: "none"},
			payload:    reviewerPayload(),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "configuration_error",
		},
		{
			name:       "backend failure",
			llmStatus:  http.StatusInternalServerError,
			payload:    reviewerPayload(),
			wantStatus: http.StatusBadGateway,
			wantType:   "backend_error",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, tt.opts)
			if tt.llmStatus != 0 {
				f.llmStatus.Store(int32(tt.llmStatus))
			}

			resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/analyze", tt.payload))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["code"])
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, tt.wantCalls, f.llmCalls.Load())
		})
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	limiter := services.NewRateLimiter(services.NewMemoryCounter(), services.RateLimits{UserRPM: 1, GlobalRPM: 100, SafetyMargin: 5}, nil)
	f := newHandlerFixture(t, fixtureOptions{limit: RateLimit(limiter)})

	first := jsonRequest(http.MethodPost, "/api/v1/analyze", reviewerPayload())
	first.Header.Set(HeaderUserID, "alice")
	resp, _ := f.do(t, first)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := jsonRequest(http.MethodPost, "/api/v1/analyze", reviewerPayload())
	second.Header.Set(HeaderUserID, "alice")
	resp, body := f.do(t, second)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["type"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))

	other := jsonRequest(http.MethodPost, "/api/v1/analyze", reviewerPayload())
	other.Header.Set(HeaderUserID, "bob")
	resp, _ = f.do(t, other)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), f.llmCalls.Load())
}

func TestSessions_RunAndPoll(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", map[string]any{
		"resume":          testResume,
		"job_description": testJD,
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := body["id"].(string)

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/run", map[string]any{
		"features": []string{"reviewer", "ats_score"},
	}))
	require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	assert.Len(t, body["runs"], 2)
	require.Len(t, f.worker.ids, 2)

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loading := body["loading"].(map[string]any)
	assert.Equal(t, true, loading["reviewer"])
	assert.Equal(t, true, loading["ats_score"])

	for _, id := range f.worker.ids {
		require.NoError(t, f.analyzer.ProcessRun(context.Background(), id))
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].(map[string]any)
	assert.Contains(t, results, "reviewer")
	assert.Contains(t, results, "ats_score")
	assert.Empty(t, body["loading"])
}

func TestSessions_Errors(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["type"])

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/8a1f2a9e-4d0c-4f57-9a36-3b1a6f0c2d11", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["type"])

	resp, _ = f.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions", map[string]any{"resume": testResume}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/sessions/8a1f2a9e-4d0c-4f57-9a36-3b1a6f0c2d11/run", map[string]any{"features": []string{}}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["type"])
	assert.Empty(t, f.worker.ids)
}

func exportedDOCX(t *testing.T, f *handlerFixture) []byte {
	t.Helper()
	resp, err := f.exporter.CoverLetter(models.CoverLetterExportRequest{
		Format:      models.ExportDOCX,
		CoverLetter: "Senior Go engineer with payments experience.",
	})
	require.NoError(t, err)
	path, _, err := f.exporter.Open(resp.Name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestExtract(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})
	docx := exportedDOCX(t, f)

	resp, body := f.do(t, multipartRequest(t, "/api/v1/extract", uploadPart{"file", "resume.docx", services.ContentTypeDOCX, docx}))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "resume.docx", body["filename"])
	assert.Contains(t, body["text"], "Senior Go engineer with payments experience.")

	resp, body = f.do(t, multipartRequest(t, "/api/v1/extract",
		uploadPart{"files", "a.docx", services.ContentTypeDOCX, docx},
		uploadPart{"files", "b.docx", "application/octet-stream", docx},
	))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["documents"], 2)

	resp, body = f.do(t, multipartRequest(t, "/api/v1/extract", uploadPart{"file", "notes.txt", "text/plain", []byte("hello")}))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "unsupported_format", body["type"])

	resp, body = f.do(t, multipartRequest(t, "/api/v1/extract", uploadPart{"file", "broken.pdf", services.ContentTypePDF, []byte("%PDF-1.4 garbage")}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "parse_error", body["type"])

	resp, body = f.do(t, multipartRequest(t, "/api/v1/extract"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["type"])
}

func TestProfiles(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/profiles", map[string]any{"name": "Top Engineer", "content": testResume}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = f.do(t, multipartRequest(t, "/api/v1/profiles",
		uploadPart{"files", "Staff Engineer.docx", services.ContentTypeDOCX, exportedDOCX(t, f)},
		uploadPart{"files", "notes.txt", "text/plain", []byte("nope")},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	created := body["profiles"].([]any)
	require.Len(t, created, 1)
	assert.Equal(t, "Staff Engineer", created[0].(map[string]any)["name"])
	failed := body["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, "unsupported_format", failed[0].(map[string]any)["type"])

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 20.0, body["max"])
	id := body["profiles"].([]any)[0].(map[string]any)["id"].(string)

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/profiles/similar", map[string]any{"resume": testResume}))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "configuration_error", body["type"])

	resp, _ = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/"+id, nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["type"])

	resp, body = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/profiles", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["deleted"])
}

func TestSettings(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "light", body["theme"])
	assert.Equal(t, false, body["use_local"])

	resp, body = f.do(t, jsonRequest(http.MethodPut, "/api/v1/settings", map[string]any{"theme": "dark", "use_local": true}))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "dark", body["theme"])
	assert.Equal(t, true, body["use_local"])

	resp, body = f.do(t, jsonRequest(http.MethodPut, "/api/v1/settings", map[string]any{"theme": "blue"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "theme", strings.SplitN(body["error"].(string), ":", 2)[0])

	resp, body = f.do(t, jsonRequest(http.MethodPut, "/api/v1/settings", map[string]any{"cloud_model": "gpt-2"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	assert.Equal(t, "dark", body["theme"])
	assert.Equal(t, "gpt-4o-mini", body["cloud_model"])
}

func TestExports(t *testing.T) {
	f := newHandlerFixture(t, fixtureOptions{})

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/v1/exports/cover-letter", map[string]any{
		"format":       "docx",
		"cover_letter": "Dear team,\n\nHire me.",
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	url := body["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/api/v1/exports/cover-letter_"))

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, url, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/exports/resume", map[string]any{
		"format": "pdf",
		"resume": map[string]any{"contact": map[string]any{}},
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["type"])

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/exports/report", map[string]any{
		"feature": "checklist",
		"data": map[string]any{
			"checklist": []any{map[string]any{"requirement": "Go", "status": "present"}},
		},
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, services.ContentTypeXLSX, body["content_type"])

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/v1/exports/report", map[string]any{
		"feature": "reviewer",
		"data":    map[string]any{},
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/exports/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["type"])
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, StatusForError(fiber.ErrRequestEntityTooLarge))
	assert.Equal(t, fiber.StatusTooManyRequests, StatusForError(&models.RateLimitError{Message: "slow down", RetryAfter: time.Second}))
	assert.Equal(t, fiber.StatusInternalServerError, StatusForError(io.ErrUnexpectedEOF))
}

func TestJSONFieldPath(t *testing.T) {
	assert.Equal(t, "tone", jsonFieldPath("AnalysisRequest.AnalysisInputs.Tone"))
	assert.Equal(t, "resumes[0].content", jsonFieldPath("AnalysisRequest.AnalysisInputs.Resumes[0].Content"))
	assert.Equal(t, "resume.full_name", jsonFieldPath("ResumeExportRequest.Resume.FullName"))
	assert.Equal(t, "profile_ids[1]", jsonFieldPath("AnalysisInputs.ProfileIDs[1]"))
}
