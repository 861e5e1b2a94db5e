package server

import (
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
)

const (
	espImageMagic  = 0xE9
	maxUploadBytes = 8 << 20
)

// Handler returns the HTTP surface of the device. Every route requires
// basic auth with the current admin password.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /config", s.handleBackup)
	mux.HandleFunc("POST /upgrade", s.handleUpgrade)
	return s.withAuth(mux)
}

// withAuth logs the request, refuses connections while the board reboots
// and checks credentials.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)

		if s.rebooting() {
			http.Error(w, "rebooting", http.StatusServiceUnavailable)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !equal(user, s.config.Username) || !equal(pass, s.device.Password()) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ESPurna"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "%s %s emulated device\n", s.config.Profile.AppName, s.config.Profile.AppVersion)
}

// handleBackup serves the settings as a file download.
func (s *Server) handleBackup(w http.ResponseWriter, _ *http.Request) {
	hostname, _ := s.device.Setting("hostname")
	name := slug.Make(hostname)
	if name == "" {
		name = "device"
	}
	filename := fmt.Sprintf("%s-backup-%s.json", name, time.Now().Format("20060102"))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(s.device.Backup())
}

// handleUpgrade accepts a firmware image from multipart field "upgrade".
// The body is "OK" when the image was flashed and an error text otherwise,
// always with status 200 as the firmware does.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("upgrade")
	if err != nil {
		logging.Warn("Upload without image", zap.Error(err))
		_, _ = io.WriteString(w, "No firmware image in request")
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(file)
	if err != nil {
		_, _ = io.WriteString(w, "Error reading image")
		return
	}

	switch {
	case len(image) == 0:
		_, _ = io.WriteString(w, "Empty image")
		return
	case int64(len(image)) > s.device.FreeSpace():
		_, _ = io.WriteString(w, "Not enough space")
		return
	case image[0] != espImageMagic && !(len(image) > 1 && image[0] == 0x1f && image[1] == 0x8b):
		_, _ = fmt.Fprintf(w, "Magic byte is wrong, not 0x%02X", espImageMagic)
		return
	}

	logging.Info("Emulated device accepted image",
		zap.String("filename", header.Filename),
		zap.Int("size", len(image)),
	)
	_, _ = io.WriteString(w, "OK")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	s.device.Flash()
	s.restart("upgrade")
}
