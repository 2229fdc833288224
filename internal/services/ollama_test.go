package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

func TestOllamaGenerate_Success(t *testing.T) {
	var got api.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": `{"overall_score": 71}`, "done": true})
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL+"/", "llama3", srv.Client())
	text, err := backend.Generate(context.Background(), GenerateRequest{Prompt: "score it", Temperature: 0.7, MaxTokens: 2000})
	require.NoError(t, err)

	assert.Equal(t, `{"overall_score": 71}`, text)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "score it", got.Prompt)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	assert.EqualValues(t, 2000, got.Options["num_predict"])
	assert.InDelta(t, 0.7, got.Options["temperature"], 1e-9)
}

func TestOllamaGenerate_ExplicitModel(t *testing.T) {
	var got api.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL, "llama3", srv.Client())
	_, err := backend.Generate(context.Background(), GenerateRequest{Prompt: "x", Model: "mistral"})
	require.NoError(t, err)
	assert.Equal(t, "mistral", got.Model)
}

func TestOllamaGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	backend := NewOllamaBackend(url, "llama3", nil)
	_, err := backend.Generate(context.Background(), GenerateRequest{Prompt: "x"})

	var bErr *models.BackendError
	require.ErrorAs(t, err, &bErr)
	assert.True(t, bErr.Unreachable)
	assert.Contains(t, bErr.Error(), "ollama serve")
}

func TestOllamaGenerate_ModelNotFound(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusNotFound, map[string]string{"error": "model 'phi9' not found"})
	backend := NewOllamaBackend(srv.URL, "phi9", client)

	_, err := backend.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	var bErr *models.BackendError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, http.StatusNotFound, bErr.Status)
	assert.Equal(t, "model 'phi9' not found", bErr.Message)
	assert.False(t, bErr.Unreachable)
}

func TestOllamaGenerateStream(t *testing.T) {
	var got api.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"response":"{\"a\"","done":false}`)
		fmt.Fprintln(w, `{"response":": 1}","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
		fmt.Fprintln(w, `{"response":"after done","done":false}`)
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL, "llama3", srv.Client())
	var chunks []string
	text, err := backend.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)

	require.NotNil(t, got.Stream)
	assert.True(t, *got.Stream)
	assert.Equal(t, `{"a": 1}`, text)
	assert.Equal(t, []string{`{"a"`, `: 1}`}, chunks)
}

func TestOllamaGenerateStream_ErrorMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
		fmt.Fprintln(w, `{"error":"model runner crashed"}`)
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL, "llama3", srv.Client())
	text, err := backend.GenerateStream(context.Background(), GenerateRequest{Prompt: "x"}, nil)

	var bErr *models.BackendError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, "model runner crashed", bErr.Message)
	assert.False(t, bErr.Unreachable)
	assert.Equal(t, "partial", text)
}

func TestOllamaGenerate_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL, "llama3", srv.Client())
	_, err := backend.Generate(context.Background(), GenerateRequest{Prompt: "x"})

	var bErr *models.BackendError
	require.ErrorAs(t, err, &bErr)
	assert.Contains(t, bErr.Message, "empty response")
}

func TestOllamaTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []any{
				map[string]any{"name": "llama3:latest", "size": 4661224676},
				map[string]any{"name": "mistral:7b", "size": 4109865159},
			},
		})
	}))
	t.Cleanup(srv.Close)

	backend := NewOllamaBackend(srv.URL, "llama3", srv.Client())
	tags, err := backend.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "llama3:latest", tags[0].Name)
	assert.Equal(t, int64(4109865159), tags[1].Size)
}

func TestOllamaTags_Unreachable(t *testing.T) {
	backend := NewOllamaBackend("http://127.0.0.1:1", "llama3", nil)
	_, err := backend.Tags(context.Background())

	var bErr *models.BackendError
	require.ErrorAs(t, err, &bErr)
	assert.True(t, bErr.Unreachable)
}

func TestOllamaAcceptsAnyModel(t *testing.T) {
	backend := NewOllamaBackend("http://localhost:11434", "llama3", nil)
	assert.True(t, backend.AcceptsModel("codellama:13b"))
	assert.False(t, backend.AcceptsModel(" "))
	assert.Equal(t, models.BackendLocal, backend.Kind())
	assert.Equal(t, []string{"llama3"}, backend.Models())
}
