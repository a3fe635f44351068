package bridge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Эндпоинты относительно базового URL и фиксированные имена полей.
const (
	TextPath  = "/text"
	VoicePath = "/voice"
	PhotoPath = "/photo"

	MessageKey = "message"
	AudioField = "audio"
	ImageField = "image"

	defaultHealthPath = "/health"
)

// Bridge пересылает один пользовательский ввод на один фиксированный эндпоинт бэкенда
// и возвращает тело ответа без изменений. Состояния между вызовами нет.
type Bridge struct {
	http       *resty.Client
	base       string
	healthPath string
	logger     *zap.SugaredLogger
}

type Option func(*Bridge)

// WithHTTPClient подменяет http.Client, поверх которого работает resty (в тестах — клиент httptest).
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Bridge) { b.http = newRestyClient(hc, b.logger) }
}

// WithHealthPath задаёт путь health-check относительно корня бэкенда.
func WithHealthPath(path string) Option {
	return func(b *Bridge) {
		if path != "" {
			b.healthPath = path
		}
	}
}

// New создаёт Bridge для базового URL вида http://host:3000/api/v1/ai.
// URL не проверяется: битый адрес проявится ошибкой при вызове.
func New(base string, logger *zap.SugaredLogger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	b := &Bridge{base: base, healthPath: defaultHealthPath, logger: logger}
	b.http = newRestyClient(&http.Client{}, logger)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Без таймаутов и ретраев: зависший бэкенд держит вызов, пока не отменят контекст.
func newRestyClient(hc *http.Client, logger *zap.SugaredLogger) *resty.Client {
	return resty.NewWithClient(hc).SetLogger(logger)
}

// Base возвращает базовый URL AI-эндпоинтов.
func (b *Bridge) Base() string { return b.base }

// SendText отправляет сообщение на /text и возвращает сырой ответ или строку ошибки.
func (b *Bridge) SendText(ctx context.Context, message string) string {
	return orError(b.Text(ctx, message))
}

// SendVoice отправляет аудиофайл на /voice и возвращает сырой ответ или строку ошибки.
func (b *Bridge) SendVoice(ctx context.Context, path string) string {
	return orError(b.Voice(ctx, path))
}

// SendPhoto отправляет изображение на /photo и возвращает сырой ответ или строку ошибки.
func (b *Bridge) SendPhoto(ctx context.Context, path string) string {
	return orError(b.Photo(ctx, path))
}

// CheckHealth запрашивает health-check бэкенда и возвращает сырой ответ или строку ошибки.
func (b *Bridge) CheckHealth(ctx context.Context) string {
	return orError(b.Health(ctx))
}

// Text выполняет POST {"message": message}. Код ответа не анализируется.
func (b *Bridge) Text(ctx context.Context, message string) (string, error) {
	req := b.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{MessageKey: message})
	return b.do(req, http.MethodPost, b.base+TextPath, len(message))
}

// Voice читает файл целиком и отправляет его multipart-полем "audio".
func (b *Bridge) Voice(ctx context.Context, path string) (string, error) {
	return b.upload(ctx, VoicePath, AudioField, path)
}

// Photo читает файл целиком и отправляет его multipart-полем "image".
func (b *Bridge) Photo(ctx context.Context, path string) (string, error) {
	return b.upload(ctx, PhotoPath, ImageField, path)
}

// Health выполняет GET на корне бэкенда (схема и хост базового URL) + healthPath.
func (b *Bridge) Health(ctx context.Context) (string, error) {
	endpoint, err := healthURL(b.base, b.healthPath)
	if err != nil {
		return "", &TransportError{Endpoint: b.base, Err: err}
	}
	return b.do(b.http.R().SetContext(ctx), http.MethodGet, endpoint, 0)
}

func (b *Bridge) upload(ctx context.Context, endpoint, field, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		b.logger.Warnw("Не удалось прочитать файл", "path", path, "error", err)
		return "", &FileError{Path: path, Err: err}
	}
	contentType := mimetype.Detect(data).String()
	req := b.http.R().
		SetContext(ctx).
		SetMultipartField(field, filepath.Base(path), contentType, bytes.NewReader(data))
	return b.do(req, http.MethodPost, b.base+endpoint, len(data))
}

func (b *Bridge) do(req *resty.Request, method, endpoint string, size int) (string, error) {
	id := uuid.NewString()
	start := time.Now()
	b.logger.Infow("Запрос к бэкенду...", "id", id, "method", method, "endpoint", endpoint, "bytes", size)
	resp, err := req.Execute(method, endpoint)
	dur := time.Since(start)
	if err != nil {
		b.logger.Errorw("Ошибка запроса к бэкенду", "id", id, "duration", dur.String(), "error", err)
		return "", &TransportError{Endpoint: endpoint, Err: err}
	}

	// resp.String() обрезает пробелы, а показывать нужно тело как есть
	body := resp.Body()
	b.logger.Infow("Ответ бэкенда получен", "id", id, "status", resp.StatusCode(), "bytes", len(body), "duration", dur.String())
	if msg := errorField(body); msg != "" {
		b.logger.Warnw("Бэкенд вернул ошибку", "id", id, "status", resp.StatusCode(), "error", msg)
	}
	return string(body), nil
}

// errorField достаёт поле "error" из JSON-ответа только для лога.
func errorField(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "error").String()
}

func healthURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q", base)
	}
	return u.Scheme + "://" + u.Host + path, nil
}

func orError(out string, err error) string {
	if err != nil {
		return FormatError(err)
	}
	return out
}
