package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"KidPathTester/internal/bridge"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1/ai"

func newBridge(t *testing.T, srv *httptest.Server) *bridge.Bridge {
	t.Helper()
	return bridge.New(srv.URL+apiPrefix, zap.NewNop().Sugar(), bridge.WithHTTPClient(srv.Client()))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSendText_PostsMessageAndReturnsRawBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != apiPrefix+bridge.TextPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		if got := string(bytes.TrimSpace(b)); got != `{"message":"hello"}` {
			t.Errorf("body = %s", got)
		}
		_, _ = w.Write([]byte("hi there"))
	}))
	defer srv.Close()

	out := newBridge(t, srv).SendText(context.Background(), "hello")
	if out != "hi there" {
		t.Fatalf("output = %q, want %q", out, "hi there")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
}

func TestSendText_EncodesArbitraryText(t *testing.T) {
	msg := "where is shade near \"Flagstaff Gardens\"? 🌳\nsecond line"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body) != 1 || body[bridge.MessageKey] != msg {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if out := newBridge(t, srv).SendText(context.Background(), msg); out != "ok" {
		t.Fatalf("output = %q", out)
	}
}

func TestSendText_ErrorStatusBodyIsShownUnchanged(t *testing.T) {
	const body = `{"error":"Gemini API error"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	out, err := newBridge(t, srv).Text(context.Background(), "hello")
	if err != nil {
		t.Fatalf("status codes must not turn into errors: %v", err)
	}
	if out != body {
		t.Fatalf("output = %q, want %q", out, body)
	}
}

func TestSendText_KeepsWhitespace(t *testing.T) {
	const body = "  hi there \n\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	if out := newBridge(t, srv).SendText(context.Background(), "x"); out != body {
		t.Fatalf("output = %q, want %q", out, body)
	}
}

func TestSendText_EveryCallHitsTheServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, "reply-%d", n)
	}))
	defer srv.Close()

	b := newBridge(t, srv)
	first := b.SendText(context.Background(), "same")
	second := b.SendText(context.Background(), "same")
	if hits.Load() != 2 {
		t.Fatalf("expected two requests, got %d", hits.Load())
	}
	if first != "reply-1" || second != "reply-2" {
		t.Fatalf("outputs = %q, %q", first, second)
	}
}

func TestSendVoice_UploadsExactFileBytes(t *testing.T) {
	payload := []byte{'R', 'I', 'F', 'F', 0x00, 0xff, 0x10, 0x00, '\n', 0x7f}
	path := writeFile(t, "rec.wav", payload)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != apiPrefix+bridge.VoicePath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
			t.Errorf("content type = %q", ct)
		}
		f, hdr, err := r.FormFile(bridge.AudioField)
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		got, _ := io.ReadAll(f)
		if !bytes.Equal(got, payload) {
			t.Errorf("payload = %v, want %v", got, payload)
		}
		if hdr.Filename != "rec.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		_, _ = w.Write([]byte(`{"reply":"heard you"}`))
	}))
	defer srv.Close()

	out := newBridge(t, srv).SendVoice(context.Background(), path)
	if out != `{"reply":"heard you"}` {
		t.Fatalf("output = %q", out)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
}

func TestSendPhoto_UsesImageFieldAndSniffedType(t *testing.T) {
	payload := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x01}, 64)...)
	path := writeFile(t, "playground.png", payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPrefix+bridge.PhotoPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if _, _, err := r.FormFile(bridge.AudioField); err == nil {
			t.Errorf("photo must not be sent as %q", bridge.AudioField)
		}
		f, hdr, err := r.FormFile(bridge.ImageField)
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		got, _ := io.ReadAll(f)
		if !bytes.Equal(got, payload) {
			t.Errorf("payload mismatch")
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part content type = %q", ct)
		}
		_, _ = w.Write([]byte("a playground"))
	}))
	defer srv.Close()

	if out := newBridge(t, srv).SendPhoto(context.Background(), path); out != "a playground" {
		t.Fatalf("output = %q", out)
	}
}

func TestSendVoice_MissingFileNeverTouchesNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	b := newBridge(t, srv)
	missing := filepath.Join(t.TempDir(), "rec.wav")

	out := b.SendVoice(context.Background(), missing)
	if !strings.HasPrefix(out, bridge.ErrorPrefix) {
		t.Fatalf("output = %q, want error prefix", out)
	}
	if !strings.Contains(out, "rec.wav") {
		t.Fatalf("error should name the file: %q", out)
	}

	_, err := b.Photo(context.Background(), missing)
	var fileErr *bridge.FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileError, got %T: %v", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("no request should be made, got %d", hits.Load())
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	b := newBridge(t, srv)
	srv.Close()

	path := writeFile(t, "pic.jpg", []byte{0xff, 0xd8, 0xff, 0xe0})
	outputs := []string{
		b.SendText(context.Background(), "hello"),
		b.SendVoice(context.Background(), path),
		b.SendPhoto(context.Background(), path),
		b.CheckHealth(context.Background()),
	}
	for i, out := range outputs {
		if !strings.HasPrefix(out, bridge.ErrorPrefix) {
			t.Fatalf("output %d = %q, want error prefix", i, out)
		}
	}

	_, err := b.Text(context.Background(), "hello")
	var transportErr *bridge.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if !strings.HasSuffix(transportErr.Endpoint, bridge.TextPath) {
		t.Fatalf("endpoint = %q", transportErr.Endpoint)
	}
}

func TestMalformedBaseURL(t *testing.T) {
	b := bridge.New("://not a url", zap.NewNop().Sugar())
	if out := b.SendText(context.Background(), "hello"); !strings.HasPrefix(out, bridge.ErrorPrefix) {
		t.Fatalf("output = %q", out)
	}
	if out := b.CheckHealth(context.Background()); !strings.HasPrefix(out, bridge.ErrorPrefix) {
		t.Fatalf("health output = %q", out)
	}
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBridge(t, srv).Text(ctx, "hello")
	var transportErr *bridge.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestCheckHealth_UsesBackendRoot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/health" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	if out := newBridge(t, srv).CheckHealth(context.Background()); out != `{"status":"healthy"}` {
		t.Fatalf("output = %q", out)
	}
}

func TestCheckHealth_CustomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/detailed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("detailed"))
	}))
	defer srv.Close()

	b := bridge.New(srv.URL+apiPrefix, nil, bridge.WithHTTPClient(srv.Client()), bridge.WithHealthPath("/health/detailed"))
	if out := b.CheckHealth(context.Background()); out != "detailed" {
		t.Fatalf("output = %q", out)
	}
}

func TestFormatError(t *testing.T) {
	if got := bridge.FormatError(errors.New("boom")); got != "❌ Error: boom" {
		t.Fatalf("got %q", got)
	}
	if got := bridge.FormatError(nil); got != "" {
		t.Fatalf("nil error should format to empty string, got %q", got)
	}
}
