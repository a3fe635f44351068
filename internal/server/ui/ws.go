package ui

import (
	"KidPathTester/internal/bridge"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Тестер локальный и без авторизации, origin не проверяем.
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// wsRequest один кадр от клиента. Для voice/photo файл передаётся в Data как base64.
type wsRequest struct {
	Kind     string `json:"kind"` // text|voice|photo|health
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
	Data     string `json:"data,omitempty"`
}

type wsResponse struct {
	Kind   string `json:"kind"`
	Output string `json:"output"`
}

// handleWS обслуживает кадры последовательно: один запрос — один ответ.
// Ошибки уходят клиенту строкой в output, соединение не рвётся.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		var out string
		if err := json.Unmarshal(data, &req); err != nil {
			out = bridge.FormatError(fmt.Errorf("bad request: %w", err))
		} else {
			out = s.dispatch(ctx, req)
		}
		if err := conn.WriteJSON(wsResponse{Kind: req.Kind, Output: out}); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req wsRequest) string {
	switch req.Kind {
	case "text":
		return s.sender.SendText(ctx, req.Message)
	case "voice":
		return s.sendEncoded(ctx, req, s.sender.SendVoice)
	case "photo":
		return s.sendEncoded(ctx, req, s.sender.SendPhoto)
	case "health":
		return s.sender.CheckHealth(ctx)
	default:
		return bridge.FormatError(fmt.Errorf("unknown kind %q", req.Kind))
	}
}

func (s *Server) sendEncoded(ctx context.Context, req wsRequest, send func(ctx context.Context, path string) string) string {
	b, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return bridge.FormatError(fmt.Errorf("invalid base64: %w", err))
	}
	name := req.Filename
	if name == "" {
		name = req.Kind
	}
	path, err := s.store.Save(name, bytes.NewReader(b))
	if err != nil {
		return bridge.FormatError(err)
	}
	return send(ctx, path)
}
