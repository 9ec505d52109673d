package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/storytime/internal/config"
	"github.com/alkime/storytime/internal/generate"
	"github.com/alkime/storytime/internal/server"
	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/storyapi"
	"github.com/alkime/storytime/internal/storystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = &config.ServerConfig{
	Env:        "test",
	Port:       "8000",
	HSTSMaxAge: 31536000,
	CSPMode:    "relaxed",
	LogLevel:   "info",
}

type fixture struct {
	srv      *server.Server
	store    *storystore.Store
	audioDir string
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, generate.Audio, string) (generate.Result, error) {
	return generate.Result{}, errors.New("planner offline")
}

func newFixture(t *testing.T, gen server.Generator) *fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := storystore.Open(filepath.Join(dir, "stories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	audioDir := filepath.Join(dir, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if gen == nil {
		gen = generate.New(generate.PlaceholderTranscriber{}, generate.FallbackPlanner{}, logger)
	}

	ids := 0
	srv := server.New(testConfig, server.Deps{
		Store:     store,
		Generator: gen,
		AudioDir:  audioDir,
		Now: func() time.Time {
			return time.Date(2025, 3, 1, 10, 0, ids, 0, time.UTC)
		},
		NewID: func() string {
			ids++
			return "story-" + string(rune('0'+ids))
		},
	}, logger)

	return &fixture{srv: srv, store: store, audioDir: audioDir}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename string, data []byte, title string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if title != "" {
		require.NoError(t, mw.WriteField("title", title))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stories", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.JSONEq(t, `{"status":"healthy","service":"storyd"}`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, config.BuildCSP("relaxed"), w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS outside production")
}

func TestListStories_Empty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/stories", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetStory_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/stories/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Story not found")
}

func TestCreateStory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(uploadRequest(t, "story.mp3", []byte("mp3-bytes"), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created story.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Equal(t, story.ID("story-1"), created.ID)
	assert.Equal(t, "A Day of Adventure", created.Title)
	assert.Equal(t, generate.PlaceholderTranscript, created.Transcript)
	assert.Equal(t, "/audio/story-1_story.mp3", created.AudioURL)
	require.Len(t, created.Panels, 4)
	assert.Equal(t, "https://placehold.co/600x400/png?text=Panel+1", created.Panels[0].ImageURL)

	saved, err := os.ReadFile(filepath.Join(f.audioDir, "story-1_story.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(saved))

	// Stored and served back.
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/stories/story-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var fetched story.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, created.Panels, fetched.Panels)

	w = f.do(httptest.NewRequest(http.MethodGet, "/audio/story-1_story.mp3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp3-bytes", w.Body.String())
}

func TestCreateStory_TitleFiltered(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(uploadRequest(t, "story.mp3", []byte("x"), "The Knife Castle"))
	require.Equal(t, http.StatusOK, w.Code)

	var created story.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "The * Castle", created.Title)
}

func TestCreateStory_StripsPathFromFilename(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(uploadRequest(t, "../../etc/evil.mp3", []byte("x"), ""))
	require.Equal(t, http.StatusOK, w.Code)

	var created story.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "/audio/story-1_evil.mp3", created.AudioURL)
	assert.FileExists(t, filepath.Join(f.audioDir, "story-1_evil.mp3"))
}

func TestCreateStory_MissingAudio(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "No audio"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stories", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStory_GenerationFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingGenerator{})
	w := f.do(uploadRequest(t, "story.mp3", []byte("x"), ""))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	entries, err := os.ReadDir(f.audioDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "audio of a failed story is removed")

	list, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// brokenStore accepts reads but refuses writes.
type brokenStore struct {
	*storystore.Store
}

func (brokenStore) Insert(context.Context, story.Story) error {
	return errors.New("database is locked")
}

func TestCreateStory_StoreFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	srv := server.New(testConfig, server.Deps{
		Store:     brokenStore{Store: f.store},
		Generator: generate.New(generate.PlaceholderTranscriber{}, generate.FallbackPlanner{}, logger),
		AudioDir:  f.audioDir,
	}, logger)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, uploadRequest(t, "story.mp3", []byte("x"), ""))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries, err := os.ReadDir(f.audioDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "audio of an unsaved story is removed")
}

func TestAudio_Missing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/audio/nothing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	client, err := storyapi.NewClient(storyapi.Config{BaseURL: ts.URL})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := client.CreateStory(ctx, storyapi.Upload{Data: []byte("one"), ContentType: "audio/mpeg"})
	require.NoError(t, err)
	second, err := client.CreateStory(ctx, storyapi.Upload{Data: []byte("two")}, storyapi.WithTitle("Second"))
	require.NoError(t, err)
	assert.Equal(t, "Second", second.Title)

	list, err := client.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	got, err := client.GetStory(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Panels, got.Panels)

	_, err = client.GetStory(ctx, "missing")
	require.ErrorIs(t, err, story.ErrNotFound)
}
