package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` // Режим дебага: dev-логгер, gin в debug, очистка кэша загрузок отключена

	// Бэкенд
	APIBase    string `env:"API_BASE"`    // Базовый URL AI-эндпоинтов, напр. http://localhost:3000/api/v1/ai
	HealthPath string `env:"HEALTH_PATH"` // Путь health-check относительно корня бэкенда

	// UI-сервер
	BindAddr       string   `env:"BIND_ADDR"`                        // Адрес слушателя UI, по умолчанию на всех интерфейсах
	PublicURL      string   `env:"PUBLIC_URL"`                       // Внешний адрес туннеля (опционально), только логируется и разрешается в CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:";"` // Дополнительные CORS origins
	Title          string   `env:"UI_TITLE"`                         // Заголовок страницы
	WSEnabled      bool     `env:"WS_ENABLED"`                       // Включить WebSocket-транспорт /ws

	// Кэш загрузок
	UploadDir string        `env:"UPLOAD_DIR"` // Куда сохраняются загруженные из браузера файлы
	UploadTTL time.Duration `env:"UPLOAD_TTL"` // Через сколько файлы кэша считаются старыми и удаляются

	// Mock-бэкенд (cmd/mockbackend)
	MockBindAddr string `env:"MOCK_BIND_ADDR"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:    false,
		APIBase:      "http://localhost:3000/api/v1/ai",
		HealthPath:   "/health",
		BindAddr:     "0.0.0.0:7862",
		Title:        "🧪 KidPath AI All-in-One Tester (Raw Output)",
		WSEnabled:    true,
		UploadDir:    filepath.Join(os.TempDir(), "kidpath-tester"),
		UploadTTL:    time.Hour,
		MockBindAddr: "127.0.0.1:3000",
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
// Флаги, объявленные в flag.CommandLine до вызова, тоже будут разобраны.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	return cfg
}

// Load стартует с дефолтов, перекрывает их окружением и затем флагами из args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.APIBase, "api-base", cfg.APIBase, "базовый URL AI-эндпоинтов бэкенда")
	fs.StringVar(&cfg.HealthPath, "health-path", cfg.HealthPath, "путь health-check на бэкенде")
	fs.StringVar(&cfg.BindAddr, "bind-addr", cfg.BindAddr, "адрес для прослушивания UI (напр. 0.0.0.0:7862)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "внешний адрес туннеля, если UI опубликован наружу")
	// Принимаем список origins одной строкой, разделённой ';'
	originsFlag := strings.Join(cfg.AllowedOrigins, ";")
	fs.StringVar(&originsFlag, "allowed-origins", originsFlag, "дополнительные CORS origins, разделённые ';'")
	fs.StringVar(&cfg.Title, "ui-title", cfg.Title, "заголовок страницы тестера")
	fs.BoolVar(&cfg.WSEnabled, "ws-enabled", cfg.WSEnabled, "включить WebSocket-транспорт /ws")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "директория кэша загруженных файлов")
	fs.DurationVar(&cfg.UploadTTL, "upload-ttl", cfg.UploadTTL, "время жизни файлов в кэше загрузок, напр. 30m")
	fs.StringVar(&cfg.MockBindAddr, "mock-bind-addr", cfg.MockBindAddr, "адрес mock-бэкенда (cmd/mockbackend)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = parseListFlag(originsFlag, nil)
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.HealthPath != "" && !strings.HasPrefix(cfg.HealthPath, "/") {
		cfg.HealthPath = "/" + cfg.HealthPath
	}
	return cfg, nil
}

// Origins возвращает список origins для CORS: явно заданные плюс PublicURL.
func (c *Config) Origins() []string {
	out := make([]string, 0, len(c.AllowedOrigins)+1)
	out = append(out, c.AllowedOrigins...)
	if pu := strings.TrimRight(strings.TrimSpace(c.PublicURL), "/"); pu != "" {
		out = append(out, pu)
	}
	return out
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
