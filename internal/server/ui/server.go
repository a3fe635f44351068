package ui

import (
	"KidPathTester/internal/bridge"
	"KidPathTester/internal/config"
	"KidPathTester/internal/server"
	"KidPathTester/internal/service/upload"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// Ensure interface compliance
var _ server.Server = (*Server)(nil)

// Sender — то, что UI вызывает на каждое действие пользователя. Реализуется bridge.Bridge.
// Методы никогда не возвращают ошибку: результат всегда строка для показа.
type Sender interface {
	SendText(ctx context.Context, message string) string
	SendVoice(ctx context.Context, path string) string
	SendPhoto(ctx context.Context, path string) string
	CheckHealth(ctx context.Context) string
}

// Server — локальный веб-интерфейс тестера с тремя вкладками.
type Server struct {
	cfg     *config.Config
	sender  Sender
	store   *upload.Store
	cleaner *upload.Cleaner
	logger  *zap.SugaredLogger
	engine  *gin.Engine
	srv     *http.Server
	addr    string
	running atomic.Bool
}

func New(cfg *config.Config, sender Sender, logger *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:     cfg,
		sender:  sender,
		store:   upload.NewStore(cfg.UploadDir, logger),
		cleaner: upload.NewCleaner(logger),
		logger:  logger,
		addr:    cfg.BindAddr,
	}
	s.engine = s.routes()
	// Без Read/WriteTimeout: вызов бэкенда может длиться сколько угодно, загрузки бывают большими.
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler отдаёт gin engine (для httptest).
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	if origins := s.corsOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.SetHTMLTemplate(indexTemplate)

	r.GET("/", s.handleIndex)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	{
		api.POST("/text", s.handleText)
		api.POST("/voice", s.handleUpload(bridge.AudioField, s.sender.SendVoice))
		api.POST("/photo", s.handleUpload(bridge.ImageField, s.sender.SendPhoto))
		api.GET("/health", s.handleHealth)
	}

	if s.cfg.WSEnabled {
		r.GET("/ws", s.handleWS)
	}
	return r
}

// corsOrigins оставляет только origins, которые примет gin-contrib/cors (иначе он паникует).
func (s *Server) corsOrigins() []string {
	var out []string
	for _, o := range s.cfg.Origins() {
		if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			out = append(out, o)
			continue
		}
		s.logger.Warnw("Origin пропущен: нужен http:// или https://", "origin", o)
	}
	return out
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	// Слушаем явно, чтобы ошибка bind вернулась сразу, а порт 0 дал реальный адрес.
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("ui server: listen %s: %w", s.cfg.BindAddr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		s.logger.Infow("UI server listening", "addr", s.addr, "backend", s.cfg.APIBase, "ws", s.cfg.WSEnabled)
		if pu := strings.TrimSpace(s.cfg.PublicURL); pu != "" {
			s.logger.Infow("Public URL", "url", pu)
		}
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("UI server stopped with error", "error", err)
		} else {
			s.logger.Infow("UI server stopped")
		}
	}()

	go s.cleaner.Run(ctx, s.store.Dir(), s.cfg.UploadTTL, s.cfg.UploadTTL/4, s.cfg.DebugMode)

	// Watch for context cancellation to stop the server
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
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("ui server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.addr }

func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"remote", c.ClientIP(),
		)
	}
}
