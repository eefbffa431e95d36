package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtside/courtside-agent/internal/exporter"
	"github.com/courtside/courtside-agent/internal/store"
	"github.com/courtside/courtside-agent/internal/studio"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/video", uploadVideoHandler(cfg))
		r.Get("/video", playbackHandler(cfg))
		r.Post("/analyze", analyzeHandler(cfg))
		r.Get("/events", listEventsHandler(cfg))
		r.Post("/chat", chatHandler(cfg))
		r.Post("/commentary", commentaryHandler(cfg))
		r.Post("/export", exportHandler(cfg))
		r.Get("/export/edl", exportEDLHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}/download", downloadExportHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Studio.Status())
	}
}

func uploadVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
			WriteError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed", "UPLOAD_TOO_LARGE")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file field is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read upload", "BAD_REQUEST")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || !strings.HasPrefix(mimeType, "video/") {
			mimeType = "video/mp4"
		}

		status, err := cfg.Studio.LoadVideo(r.Context(), header.Filename, mimeType, data)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, UploadResponse{Status: status})
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, mimeType, ok := cfg.Studio.Video()
		if !ok {
			WriteError(w, http.StatusNotFound, "no video loaded", "NOT_FOUND")
			return
		}

		if err := cfg.Clips.ServeClip(w, r, path, mimeType); err != nil {
			cfg.Logger.Error("playback error", "error", err)
		}
	}
}

func analyzeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := cfg.Studio.Analyze(r.Context())
		if err != nil {
			writeStudioError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, EventsResponse{Events: events})
	}
}

func listEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, EventsResponse{Events: cfg.Studio.Events()})
	}
}

func chatHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			WriteError(w, http.StatusBadRequest, "message is required", "BAD_REQUEST")
			return
		}

		reply, err := cfg.Studio.Chat(r.Context(), req.Message)
		if err != nil {
			writeStudioError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, ChatResponse{Reply: reply, Messages: cfg.Studio.Messages()})
	}
}

func commentaryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		script, err := cfg.Studio.GenerateCommentary(r.Context())
		if err != nil {
			writeStudioError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, CommentaryResponse{
			Script:   script,
			HasAudio: cfg.Studio.Status().HasCommentary,
		})
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Studio.Export(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, exporter.ErrPrecondition):
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "PRECONDITION")
			case errors.Is(err, exporter.ErrExportInFlight):
				WriteError(w, http.StatusConflict, err.Error(), "EXPORT_IN_FLIGHT")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "EXPORT_FAILED")
			}
			return
		}

		WriteJSON(w, http.StatusCreated, ExportResponse{Export: ExportRecordToResponse(rec)})
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := cfg.Studio.Events()
		if len(events) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no highlight events to export", "PRECONDITION")
			return
		}
		path, _, ok := cfg.Studio.Video()
		if !ok {
			WriteError(w, http.StatusUnprocessableEntity, "no video loaded", "PRECONDITION")
			return
		}

		title := r.URL.Query().Get("title")
		if title == "" {
			title = "Courtside Highlights"
		}
		frameRate := 30.0
		if v := r.URL.Query().Get("frame_rate"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "invalid frame_rate", "BAD_REQUEST")
				return
			}
			frameRate = parsed
		}

		edl := exporter.GenerateEDL(events, title, filepath.Base(path), frameRate)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exporter.SanitizeName(title, 60)+`.edl"`)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, edl)
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := cfg.Repository.ListExports(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportRecordResponse, len(records))}
		for i, rec := range records {
			resp.Exports[i] = ExportRecordToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "export id required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.Repository.GetExport(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if rec == nil {
			WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
			return
		}
		if rec.Status != store.ExportStatusCompleted {
			WriteError(w, http.StatusConflict, "export did not complete", "NOT_COMPLETED")
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
		if err := cfg.Clips.ServeClip(w, r, rec.Path, rec.ContentType); err != nil {
			cfg.Logger.Error("export download error", "error", err, "export_id", rec.ID)
		}
	}
}

func writeStudioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrNoVideo), errors.Is(err, studio.ErrNoEvents):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "PRECONDITION")
	case errors.Is(err, studio.ErrBusy):
		WriteError(w, http.StatusConflict, err.Error(), "BUSY")
	default:
		WriteError(w, http.StatusBadGateway, err.Error(), "COLLABORATOR_ERROR")
	}
}
