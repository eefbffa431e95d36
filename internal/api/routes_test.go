package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/courtside/courtside-agent/internal/detect"
	"github.com/courtside/courtside-agent/internal/exporter"
	"github.com/courtside/courtside-agent/internal/llm"
	"github.com/courtside/courtside-agent/internal/media"
	"github.com/courtside/courtside-agent/internal/playback"
	"github.com/courtside/courtside-agent/internal/store"
	"github.com/courtside/courtside-agent/internal/studio"
	"github.com/courtside/courtside-agent/internal/tts"
)

const testToken = "test-token-12345"

type memRepo struct {
	mu      sync.Mutex
	records []*store.ExportRecord
	config  map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{config: map[string]string{"auth_token": testToken}}
}

func (m *memRepo) CreateExport(_ context.Context, rec *store.ExportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memRepo) GetExport(_ context.Context, id string) (*store.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListExports(_ context.Context, _ int) ([]*store.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.ExportRecord, len(m.records))
	for i, rec := range m.records {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

func (m *memRepo) CompleteExport(_ context.Context, id string, sizeBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			rec.Status = store.ExportStatusCompleted
			rec.SizeBytes = sizeBytes
		}
	}
	return nil
}

func (m *memRepo) FailExport(_ context.Context, id, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			rec.Status = store.ExportStatusFailed
			rec.Error = errorMsg
		}
	}
	return nil
}

func (m *memRepo) GetConfig(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config[key], nil
}

func (m *memRepo) SetConfig(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

func testServerConfig(t *testing.T) (ServerConfig, *memRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()

	ctrl := exporter.NewController(repo, exporter.Options{
		ExportsDir:   t.TempDir(),
		CaptureFPS:   60,
		TimeScale:    50.0,
		SegmentGrace: 2 * time.Second,
	}, logger)

	svc := studio.NewService(
		media.SizeEstimateProber{},
		detect.NewStubClient(logger),
		llm.NewStubClient(logger),
		tts.NewStub(logger),
		ctrl,
		studio.Options{MediaDir: t.TempDir(), Tick: 2 * time.Millisecond, TimeScale: 50.0},
		logger,
	)

	return ServerConfig{
		Port:           0,
		Studio:         svc,
		Repository:     repo,
		Clips:          playback.NewClipServer(logger),
		MaxUploadBytes: 64 << 20,
		Logger:         logger,
		StartTime:      time.Now(),
		DeviceID:       "device-1",
	}, repo
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func uploadVideo(t *testing.T, router http.Handler, sizeBytes int) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "game.mp4")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(make([]byte, sizeBytes))
	mw.Close()

	req := authedRequest(http.MethodPost, "/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint_NoAuth(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var resp HealthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" || resp.DeviceID != "device-1" {
		t.Errorf("health = %+v", resp)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp studio.Status
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.VideoLoaded {
		t.Error("fresh session reports a loaded video")
	}
}

func TestUploadVideo(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := uploadVideo(t, router, 40<<20)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp UploadResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Status.VideoLoaded || resp.Status.DurationSec != 40 {
		t.Errorf("upload status = %+v", resp.Status)
	}
}

func TestUploadVideo_MissingFileField(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	req := authedRequest(http.MethodPost, "/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadVideo_TooLarge(t *testing.T) {
	cfg, _ := testServerConfig(t)
	cfg.MaxUploadBytes = 1024
	router := NewRouter(cfg)

	w := uploadVideo(t, router, 1<<20)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestAnalyzeAndListEvents(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/analyze", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp EventsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Events) == 0 {
		t.Fatal("analyze returned no events")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("events status = %d", w.Code)
	}
	var listed EventsResponse
	json.NewDecoder(w.Body).Decode(&listed)
	if len(listed.Events) != len(resp.Events) {
		t.Errorf("listed %d events, analyze returned %d", len(listed.Events), len(resp.Events))
	}
}

func TestAnalyze_WithoutVideo(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/analyze", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	body := strings.NewReader(`{"message":"what happened at the 10 second mark?"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/chat", body))

	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ChatResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Reply.Role != "assistant" || resp.Reply.Content == "" {
		t.Errorf("reply = %+v", resp.Reply)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("messages = %d, want user + assistant", len(resp.Messages))
	}
}

func TestChatEndpoint_EmptyMessage(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"  "}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestExportFlow(t *testing.T) {
	cfg, repo := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	// export before any analysis is a precondition failure
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/export", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("premature export status = %d, want 422", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/analyze", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/commentary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("commentary status = %d, body = %s", w.Code, w.Body.String())
	}
	var commentary CommentaryResponse
	json.NewDecoder(w.Body).Decode(&commentary)
	if !commentary.HasAudio {
		t.Fatal("commentary has no audio")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/export", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("export status = %d, body = %s", w.Code, w.Body.String())
	}
	var exported ExportResponse
	json.NewDecoder(w.Body).Decode(&exported)
	if exported.Export.Status != store.ExportStatusCompleted {
		t.Fatalf("export record = %+v", exported.Export)
	}

	// history lists it
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/exports", nil))
	var history ExportsResponse
	json.NewDecoder(w.Body).Decode(&history)
	if len(history.Exports) != 1 {
		t.Fatalf("exports listed = %d, want 1", len(history.Exports))
	}

	// artifact downloads with the negotiated content type
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/exports/"+exported.Export.ID+"/download", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != exported.Export.ContentType {
		t.Errorf("download content type = %q, want %q", got, exported.Export.ContentType)
	}
	if w.Body.Len() == 0 {
		t.Error("downloaded artifact is empty")
	}

	if len(repo.records) != 1 {
		t.Errorf("repo rows = %d, want 1", len(repo.records))
	}
}

func TestDownloadExport_NotFound(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/exports/missing/download", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestExportEDL(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/analyze", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/export/edl?title=My+Reel&frame_rate=30", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("edl status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "TITLE: My Reel") || !strings.Contains(body, "FCM: NON-DROP FRAME") {
		t.Errorf("edl body = %q", body)
	}
}

func TestExportEDL_WithoutEvents(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 40<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/export/edl", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestVideoPlayback(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)
	uploadVideo(t, router, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/video", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("playback status = %d", w.Code)
	}
	if w.Body.Len() != 1<<20 {
		t.Errorf("playback body = %d bytes, want full clip", w.Body.Len())
	}

	req := authedRequest(http.MethodGet, "/video", nil)
	req.Header.Set("Range", "bytes=0-99")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusPartialContent {
		t.Fatalf("range playback status = %d, want 206", w.Code)
	}
	if w.Body.Len() != 100 {
		t.Errorf("range body = %d bytes, want 100", w.Body.Len())
	}
}

func TestVideoPlayback_NoVideo(t *testing.T) {
	cfg, _ := testServerConfig(t)
	router := NewRouter(cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/video", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
