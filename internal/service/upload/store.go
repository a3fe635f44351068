package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store сохраняет загруженные из браузера файлы в директорию кэша и отдаёт путь к ним.
// Bridge получает уже путь, как и при вызове из CLI.
type Store struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewStore(dir string, logger *zap.SugaredLogger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Dir() string { return s.dir }

// Save копирует r в новый файл кэша. Имя: uuid + исходное имя без пути.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+"-"+sanitizeName(name))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	s.logger.Infow("Файл сохранён в кэш", "path", path, "bytes", n)
	return path, nil
}

// SaveFile сохраняет файл из multipart-формы.
func (s *Store) SaveFile(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(fh.Filename, f)
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
