package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"kinoshka/services/userstate"
)

type backupService interface {
	ExportBackup() ([]byte, error)
	ImportBackup(raw []byte) error
}

var _ backupService = (*userstate.Service)(nil)

type BackupHandler struct {
	Service backupService
	now     func() time.Time
}

func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{Service: service, now: time.Now}
}

// backupFileName follows the kinoshka-library-yyyyMMdd-HHmm.json pattern.
func backupFileName(t time.Time) string {
	return "kinoshka-library-" + t.Format("20060102-1504") + ".json"
}

// Export streams the library backup as a download.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.ExportBackup()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backupFileName(h.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import restores a backup from the request body. Only text payloads are
// accepted; a rejected backup leaves the stored state untouched.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "backup is too large")
		return
	}

	if len(raw) > 0 && !isText(raw) {
		writeError(w, http.StatusUnsupportedMediaType, "backup must be a JSON text file")
		return
	}

	if err := h.Service.ImportBackup(raw); err != nil {
		status := storeStatus(err)
		logFailure(r, err, status)
		writeError(w, status, "Ошибка импорта: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Импорт завершен"})
}

func isText(raw []byte) bool {
	for m := mimetype.Detect(raw); m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("application/json") {
			return true
		}
	}
	return false
}
