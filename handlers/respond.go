package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"kinoshka/internal/logging"
	"kinoshka/services/metadata"
	"kinoshka/services/userstate"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError reports a failure of the local state store.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := storeStatus(err)
	logFailure(r, err, status)
	writeError(w, status, err.Error())
}

func storeStatus(err error) int {
	if errors.Is(err, userstate.ErrBackupInvalid) || errors.Is(err, userstate.ErrBackupEmpty) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeCatalogError reports a failure of the remote catalog with the message
// shown to the user.
func writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	message := metadata.UserMessage(err)
	switch {
	case errors.Is(err, metadata.ErrQueryRequired), errors.Is(err, metadata.ErrInvalidID):
		status = http.StatusBadRequest
		message = err.Error()
	case metadata.StatusCode(err) == http.StatusNotFound:
		status = http.StatusNotFound
	}
	logFailure(r, err, status)
	writeError(w, status, message)
}

func logFailure(r *http.Request, err error, status int) {
	l := logging.Ctx(r.Context())
	l.Warn().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
}

// pathID reads the {id} route variable as a positive title id.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(mux.Vars(r)["id"])
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "title id must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryPage reads ?page=, defaulting to 1.
func queryPage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errors.New("page must be a positive integer")
	}
	return page, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

const maxBodyBytes = 8 << 20

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		l := logging.Ctx(ctx)
		evt := l.Debug()
		if rec.status >= http.StatusInternalServerError {
			evt = l.Error()
		}
		evt.Str("component", "http").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
