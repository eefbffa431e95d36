package playback

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// ClipServer streams the session's loaded clip to the browser's video
// element with byte-range support, so the timeline can scrub freely.
type ClipServer struct {
	logger *slog.Logger
}

func NewClipServer(logger *slog.Logger) *ClipServer {
	return &ClipServer{logger: logger}
}

// ServeClip writes the clip at path to the response, honoring a Range
// header when present. contentType is the mime type recorded at upload.
func (s *ClipServer) ServeClip(w http.ResponseWriter, r *http.Request, path, contentType string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "clip not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat clip: %w", err)
	}
	size := stat.Size()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ParseRange(r.Header.Get("Range"), size)
	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err == ErrInvalidRange {
		// Malformed ranges fall back to the whole clip.
		br = nil
	} else if err != nil {
		return err
	}

	if br == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek clip: %w", err)
	}
	io.CopyN(w, file, br.Length())
	return nil
}
