package handlers

import (
	"net/http"
	"strings"
	"time"

	"kinoshka/models"
	"kinoshka/services/library"
	"kinoshka/services/progress"
	"kinoshka/services/userstate"
)

type libraryStore interface {
	History() []models.HistoryRecord
	Profiles() []models.UserFilmProfile
	HideLocalContent() bool
	RemoveHistory(id int) error
	ClearHistory() error
}

var _ libraryStore = (*userstate.Service)(nil)

type LibraryHandler struct {
	Store    libraryStore
	Location *time.Location
}

func NewLibraryHandler(store libraryStore, loc *time.Location) *LibraryHandler {
	return &LibraryHandler{Store: store, Location: loc}
}

type libraryEntry struct {
	models.LibraryItem
	Progress      *models.WatchProgress `json:"progress,omitempty"`
	ViewedAtLabel string                `json:"viewedAtLabel,omitempty"`
	StatusLabel   string                `json:"statusLabel,omitempty"`
}

type libraryTab struct {
	ID    library.Tab `json:"id"`
	Title string      `json:"title"`
	Count int         `json:"count"`
}

type statusOption struct {
	Status models.UserFilmStatus `json:"status"`
	Label  string                `json:"label"`
}

type libraryResponse struct {
	Tab      library.Tab         `json:"tab"`
	Query    string              `json:"query"`
	Counts   map[library.Tab]int `json:"counts"`
	Tabs     []libraryTab        `json:"tabs"`
	Statuses []statusOption      `json:"statuses"`
	Items    []libraryEntry      `json:"items"`
}

// statusOptions lists the choices of the profile editor.
func statusOptions() []statusOption {
	statuses := models.UserFilmStatuses()
	out := make([]statusOption, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, statusOption{Status: st, Label: st.Label()})
	}
	return out
}

// List returns the merged library filtered by ?tab= and ?q=.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	tab := library.TabHistory
	if raw := r.URL.Query().Get("tab"); strings.TrimSpace(raw) != "" {
		parsed, ok := library.ParseTab(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown library tab")
			return
		}
		tab = parsed
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	items := library.Build(h.Store.History(), h.Store.Profiles())
	hideLocal := h.Store.HideLocalContent()
	visible := library.View(items, tab, hideLocal, query)

	counts := library.StatusCounts(library.HideLocal(items, hideLocal))
	resp := libraryResponse{
		Tab:      tab,
		Query:    query,
		Counts:   counts,
		Statuses: statusOptions(),
		Items:    make([]libraryEntry, 0, len(visible)),
	}
	for _, t := range library.Tabs() {
		resp.Tabs = append(resp.Tabs, libraryTab{ID: t, Title: t.Title(), Count: counts[t]})
	}
	for _, item := range visible {
		entry := libraryEntry{LibraryItem: item}
		if wp, ok := progress.ForItem(item); ok {
			entry.Progress = &wp
		}
		if item.ViewedAt != nil {
			entry.ViewedAtLabel = library.ViewedAtLabel(*item.ViewedAt, h.Location)
		}
		if item.Status != models.StatusNone {
			entry.StatusLabel = item.Status.Label()
		}
		resp.Items = append(resp.Items, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

// RemoveHistory drops one title from the watch history.
func (h *LibraryHandler) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.RemoveHistory(id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory empties the watch history. Profiles are kept.
func (h *LibraryHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearHistory(); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
