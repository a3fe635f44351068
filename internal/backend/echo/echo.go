// Package echo — локальный заменитель AI-бэкенда для ручных прогонов тестера.
// Отвечает на те же три маршрута и /health, ничего не анализируя.
package echo

import (
	"KidPathTester/internal/bridge"
	"KidPathTester/internal/server"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// BasePath — префикс маршрутов, совпадает с API_BASE по умолчанию.
const BasePath = "/api/v1/ai"

// Ensure interface compliance
var _ server.Server = (*Server)(nil)

// TextReply — ответ на /text.
type TextReply struct {
	Reply string `json:"reply"`
}

// FileReply — ответ на /voice и /photo.
type FileReply struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
}

// Handler собирает маршруты echo-бэкенда.
func Handler(logger *zap.SugaredLogger) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(BasePath+bridge.TextPath, textHandler(logger))
	mux.HandleFunc(BasePath+bridge.VoicePath, fileHandler(bridge.AudioField, logger))
	mux.HandleFunc(BasePath+bridge.PhotoPath, fileHandler(bridge.ImageField, logger))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func textHandler(logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowPost(w, r) {
			return
		}
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read body")
			return
		}
		if !gjson.ValidBytes(body) {
			writeError(w, http.StatusBadRequest, "body is not JSON")
			return
		}
		msg := gjson.GetBytes(body, bridge.MessageKey)
		if !msg.Exists() {
			writeError(w, http.StatusBadRequest, `missing "message"`)
			return
		}
		logger.Infow("echo text", "bytes", len(body), "remote", r.RemoteAddr)
		writeJSON(w, http.StatusOK, TextReply{Reply: msg.String()})
	}
}

func fileHandler(field string, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowPost(w, r) {
			return
		}
		f, fh, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("no %q file: %v", field, err))
			return
		}
		defer f.Close()

		h := sha256.New()
		n, err := io.Copy(h, f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read file")
			return
		}
		reply := FileReply{
			Field:       field,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        n,
			SHA256:      hex.EncodeToString(h.Sum(nil)),
		}
		logger.Infow("echo file", "field", field, "filename", reply.Filename, "size", n, "content_type", reply.ContentType)
		writeJSON(w, http.StatusOK, reply)
	}
}

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server — echo-бэкенд в фоне, с тем же жизненным циклом, что и UI.
type Server struct {
	srv     *http.Server
	bind    string
	addr    string
	logger  *zap.SugaredLogger
	running atomic.Bool
}

func NewServer(bind string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		bind:   bind,
		addr:   bind,
		logger: logger,
		srv: &http.Server{
			Handler:           Handler(logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("echo backend: listen %s: %w", s.bind, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		s.logger.Infow("Echo backend listening", "base", "http://"+s.addr+BasePath)
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Echo backend stopped with error", "error", err)
		} else {
			s.logger.Infow("Echo backend stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("echo backend shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.addr }
