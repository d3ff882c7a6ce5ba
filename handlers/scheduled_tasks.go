package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"kinoshka/services/scheduler"
)

type taskRunner interface {
	Tasks() []scheduler.TaskState
	RunTaskNow(id string) error
}

var _ taskRunner = (*scheduler.Service)(nil)

// ScheduledTasksHandler exposes the maintenance scheduler.
type ScheduledTasksHandler struct {
	Scheduler taskRunner
}

func NewScheduledTasksHandler(s taskRunner) *ScheduledTasksHandler {
	return &ScheduledTasksHandler{Scheduler: s}
}

// ListTasks returns all scheduled tasks with current status
// GET /api/tasks
func (h *ScheduledTasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": h.Scheduler.Tasks()})
}

// RunTask triggers immediate execution
// POST /api/tasks/{taskID}/run
func (h *ScheduledTasksHandler) RunTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	err := h.Scheduler.RunTaskNow(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "taskId": id})
	case errors.Is(err, scheduler.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, scheduler.ErrTaskRunning):
		writeError(w, http.StatusConflict, "Task is already running")
	case errors.Is(err, scheduler.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "Scheduler is shutting down")
	default:
		logFailure(r, err, http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
