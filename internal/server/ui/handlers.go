package ui

import (
	"KidPathTester/internal/bridge"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":     s.cfg.Title,
		"APIBase":   s.cfg.APIBase,
		"WSEnabled": s.cfg.WSEnabled,
	})
}

// handleText: поле формы "message" уходит в бэкенд как есть, пустое тоже.
func (s *Server) handleText(c *gin.Context) {
	message := c.PostForm("message")
	writeOutput(c, http.StatusOK, s.sender.SendText(c.Request.Context(), message))
}

// handleUpload сохраняет файл из поля field в кэш и передаёт путь в send.
func (s *Server) handleUpload(field string, send func(ctx context.Context, path string) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile(field)
		if err != nil {
			writeOutput(c, http.StatusBadRequest, bridge.FormatError(fmt.Errorf("no %q file in request: %w", field, err)))
			return
		}
		path, err := s.store.SaveFile(fh)
		if err != nil {
			s.logger.Errorw("Не удалось сохранить загрузку", "field", field, "filename", fh.Filename, "error", err)
			writeOutput(c, http.StatusInternalServerError, bridge.FormatError(err))
			return
		}
		writeOutput(c, http.StatusOK, send(c.Request.Context(), path))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	writeOutput(c, http.StatusOK, s.sender.CheckHealth(c.Request.Context()))
}

// writeOutput отдаёт строку для поля "Raw Response" как text/plain, без форматирования.
func writeOutput(c *gin.Context, status int, out string) {
	c.Data(status, "text/plain; charset=utf-8", []byte(out))
}
