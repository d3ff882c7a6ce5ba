package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"kinoshka/models"
	"kinoshka/services/browse"
	"kinoshka/services/userstate"
)

type detailsLoader interface {
	Details(ctx context.Context, id int) (models.FilmDetails, error)
}

// HomeHandler keeps one session of screen state and runs browse commands
// against it.
type HomeHandler struct {
	Controller *browse.Controller
	Catalog    detailsLoader

	mu          sync.Mutex
	home        browse.HomeState
	details     browse.DetailsState
	initialized bool
}

func NewHomeHandler(controller *browse.Controller, catalog detailsLoader) *HomeHandler {
	return &HomeHandler{Controller: controller, Catalog: catalog}
}

// HomeSnapshot is the session state returned after every command.
type HomeSnapshot struct {
	Home    browse.HomeState     `json:"home"`
	Visible []models.FilmItem    `json:"visibleItems"`
	Details *browse.DetailsState `json:"details,omitempty"`
}

// HomeAction is a command sent by the rendering layer.
type HomeAction struct {
	Type     string              `json:"type"`
	Query    string              `json:"query,omitempty"`
	Category string              `json:"category,omitempty"`
	Tab      string              `json:"tab,omitempty"`
	ID       int                 `json:"id,omitempty"`
	Avatar   string              `json:"profileAvatar,omitempty"`
	Theme    string              `json:"themeMode,omitempty"`
	Hide     bool                `json:"hide,omitempty"`
	Context  string              `json:"context,omitempty"`
	TileSize string              `json:"tileSize,omitempty"`
	Edit     *models.ProfileEdit `json:"edit,omitempty"`
	Backup   json.RawMessage     `json:"backup,omitempty"`
}

func (h *HomeHandler) snapshotLocked() HomeSnapshot {
	snap := HomeSnapshot{Home: h.home, Visible: h.home.VisibleItems()}
	if h.details.Bundle != nil || h.details.Error != "" {
		d := h.details
		snap.Details = &d
	}
	return snap
}

// ensureLocked loads the session on first use and otherwise reloads what the
// REST routes may have changed in the store since the last command.
func (h *HomeHandler) ensureLocked(ctx context.Context) {
	if !h.initialized {
		h.home = h.Controller.Init(ctx)
		h.initialized = true
		return
	}
	h.home = h.Controller.Refresh(h.home)
	h.details = h.Controller.RefreshDetails(h.details)
}

// Get returns the current session state, loading it on first use.
func (h *HomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ensureLocked(r.Context())
	writeJSON(w, http.StatusOK, h.snapshotLocked())
}

// Action applies one command and returns the new session state.
func (h *HomeHandler) Action(w http.ResponseWriter, r *http.Request) {
	var action HomeAction
	if !decodeBody(w, r, &action) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.ensureLocked(ctx)

	if err := h.applyLocked(ctx, action); err != nil {
		var (
			bad     actionError
			catalog catalogFailure
		)
		switch {
		case errors.As(err, &bad), errors.Is(err, browse.ErrNoDetails):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &catalog):
			writeCatalogError(w, r, catalog.err)
		default:
			writeStoreError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, h.snapshotLocked())
}

// actionError is a malformed command.
type actionError string

func (e actionError) Error() string { return string(e) }

type catalogFailure struct{ err error }

func (e catalogFailure) Error() string { return e.err.Error() }
func (e catalogFailure) Unwrap() error { return e.err }

func (h *HomeHandler) applyLocked(ctx context.Context, a HomeAction) error {
	c := h.Controller
	var err error

	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "init":
		h.home = c.Init(ctx)
	case "query":
		h.home = c.Dispatch(h.home, browse.QueryChanged{Query: a.Query})
	case "search":
		h.home = c.Dispatch(h.home, browse.QueryChanged{Query: a.Query})
		h.home = c.SubmitSearch(ctx, h.home)
	case "retry":
		h.home = c.Retry(ctx, h.home)
	case "loadmore":
		h.home = c.LoadMore(ctx, h.home)
	case "category":
		category, ok := models.ParseDiscoverCategory(a.Category)
		if !ok {
			return actionError("unknown category")
		}
		h.home = c.SelectCategory(ctx, h.home, category)
	case "tab":
		tab, ok := browse.ParseHomeTab(a.Tab)
		if !ok {
			return actionError("unknown tab")
		}
		h.home = c.Dispatch(h.home, browse.TabSelected{Tab: tab})
	case "opendetails":
		if a.ID <= 0 {
			return actionError("id must be positive")
		}
		h.details = c.LoadDetails(ctx, a.ID)
	case "closedetails":
		h.details = browse.DetailsState{}
	case "watch":
		if a.ID <= 0 {
			return actionError("id must be positive")
		}
		details, derr := h.Catalog.Details(ctx, a.ID)
		if derr != nil {
			return catalogFailure{err: derr}
		}
		h.home, err = c.Watch(h.home, details)
	case "removehistory":
		h.home, err = c.RemoveFromHistory(h.home, a.ID)
	case "saveprofile":
		if a.Edit == nil {
			return actionError("edit is required")
		}
		if verr := validate.Struct(a.Edit); verr != nil {
			return actionError(validationMessage(verr))
		}
		h.home, h.details, err = c.SaveProfile(h.home, h.details, *a.Edit)
	case "avatar":
		h.home, err = c.SetAvatar(h.home, a.Avatar)
	case "theme":
		mode, ok := models.ParseThemeMode(a.Theme)
		if !ok {
			return actionError("unknown themeMode")
		}
		h.home, err = c.SetTheme(h.home, mode)
	case "hidelocal":
		h.home, err = c.SetHideLocal(h.home, a.Hide)
	case "tilesize":
		size, ok := models.ParseTileSize(a.TileSize)
		if !ok {
			return actionError("unknown tileSize")
		}
		tctx, ok := tileContext(a.Context)
		if !ok {
			return actionError("unknown tile context")
		}
		h.home, err = c.SetTileSize(h.home, tctx, size)
	case "import":
		h.home, err = c.Import(h.home, a.Backup)
	default:
		return actionError("unknown action type")
	}

	return err
}

func tileContext(v string) (userstate.TileContext, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "DEFAULT":
		return userstate.TileDefault, true
	case "DISCOVER":
		return userstate.TileDiscover, true
	case "LIBRARY":
		return userstate.TileLibrary, true
	}
	return 0, false
}
