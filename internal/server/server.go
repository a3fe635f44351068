package server

import "context"

// Server описывает HTTP-сервис, который работает в фоне.
// Реализации: UI тестера и echo-бэкенд для ручных прогонов.
type Server interface {
	// Start запускает сервер в отдельной горутине и немедленно возвращается.
	// Должен реагировать на отмену контекста и завершать работу.
	Start(ctx context.Context) error

	// Stop инициирует graceful shutdown с использованием контекста.
	Stop(ctx context.Context) error

	// Addr возвращает адрес, на котором слушает сервер.
	Addr() string
}
