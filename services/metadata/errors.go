package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrQueryRequired = errors.New("search query is required")
	ErrInvalidID     = errors.New("title id must be positive")
)

// HTTPError is a non-2xx response from the catalog API.
type HTTPError struct {
	StatusCode int
	Status     string

	retryAfter    time.Duration
	hasRetryAfter bool
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("kinopoisk request failed: %s", e.Status)
	}
	return fmt.Sprintf("kinopoisk request failed: status %d", e.StatusCode)
}

// RetryAfter returns the server-requested delay, if one was sent.
func (e *HTTPError) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.hasRetryAfter
}

// StatusCode extracts the HTTP status of err, or 0 when err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// UserMessage maps a catalog error to the message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch code := StatusCode(err); {
	case code == http.StatusUnauthorized:
		return "Ошибка 401: проверьте валидность ключа API (metadata.api_key)"
	case code == http.StatusTooManyRequests:
		return "Слишком много запросов к API. Подождите и повторите попытку."
	case code != 0:
		return fmt.Sprintf("Ошибка API (%d)", code)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "Сервис каталога временно недоступен. Повторите попытку позже."
	}
	if errors.Is(err, context.Canceled) {
		return "Запрос отменён"
	}
	return "Ошибка запроса к сети"
}
