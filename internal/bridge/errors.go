package bridge

// ErrorPrefix — префикс строки, которую видит пользователь вместо ответа при любой ошибке.
const ErrorPrefix = "❌ Error: "

// FileError ошибка чтения локального файла. Сетевой запрос при ней не выполняется.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// TransportError ошибка построения или отправки запроса: DNS, отказ соединения, битый URL, отмена контекста.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError превращает любую ошибку в строку для показа в UI.
// Оба вида ошибок выглядят для пользователя одинаково.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return ErrorPrefix + err.Error()
}
