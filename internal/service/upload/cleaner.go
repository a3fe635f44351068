package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Cleaner удаляет старые файлы кэша загрузок по TTL.
type Cleaner struct {
	logger *zap.SugaredLogger
}

func NewCleaner(logger *zap.SugaredLogger) *Cleaner { return &Cleaner{logger: logger} }

// Clean удаляет файлы старше ttl из dir и возвращает их количество. В режиме debug — ничего не делает.
func (c *Cleaner) Clean(dir string, ttl time.Duration, debug bool) int {
	if debug {
		c.logger.Infow("DEBUG: очистка кэша загрузок отключена", "dir", dir, "ttl", ttl.String())
		return 0
	}
	if ttl <= 0 || dir == "" {
		return 0
	}

	deadline := time.Now().Add(-ttl)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		c.logger.Warnw("Не удалось прочитать директорию для очистки", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		fi, statErr := e.Info()
		if statErr != nil {
			c.logger.Warnw("Не удалось получить информацию о файле при очистке", "name", name, "error", statErr)
			continue
		}
		if fi.ModTime().Before(deadline) {
			full := filepath.Join(dir, name)
			if err := os.Remove(full); err != nil {
				c.logger.Warnw("Не удалось удалить старый файл", "path", full, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		c.logger.Infow("Очистка кэша загрузок выполнена", "dir", dir, "removed", removed, "before", deadline.Format(time.RFC3339))
	}
	return removed
}

// Run чистит dir каждые interval до отмены контекста.
func (c *Cleaner) Run(ctx context.Context, dir string, ttl, interval time.Duration, debug bool) {
	if interval <= 0 {
		interval = ttl
	}
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Clean(dir, ttl, debug)
		}
	}
}
