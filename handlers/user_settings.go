package handlers

import (
	"net/http"

	"kinoshka/models"
	"kinoshka/services/userstate"
)

type preferencesService interface {
	Preferences() models.UserPreferences
	SetPreferences(p models.UserPreferences) error
	ViewMode() models.ViewMode
	SetViewMode(mode models.ViewMode) error
	Avatar() string
	SetAvatar(value string) error
}

var _ preferencesService = (*userstate.Service)(nil)

type PreferencesHandler struct {
	Service preferencesService
}

func NewPreferencesHandler(service preferencesService) *PreferencesHandler {
	return &PreferencesHandler{Service: service}
}

// preferencesPayload is the wire form of the preferences. Enum fields are
// plain strings so unknown names can be rejected instead of silently dropped.
type preferencesPayload struct {
	ThemeMode        string  `json:"themeMode"`
	HideLocalContent bool    `json:"hideRussianContent"`
	TileSize         string  `json:"tileSize"`
	DiscoverTileSize *string `json:"discoverTileSize,omitempty"`
	LibraryTileSize  *string `json:"libraryTileSize,omitempty"`
	ShowFPSCounter   bool    `json:"showFpsCounter"`
	ViewMode         string  `json:"viewMode,omitempty"`
}

type preferencesResponse struct {
	models.UserPreferences
	ViewMode models.ViewMode `json:"viewMode"`
}

func (h *PreferencesHandler) current() preferencesResponse {
	return preferencesResponse{UserPreferences: h.Service.Preferences(), ViewMode: h.Service.ViewMode()}
}

// GetPreferences returns the effective preferences.
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current())
}

// PutPreferences replaces the preferences. Omitted grid tile sizes keep their
// stored value.
func (h *PreferencesHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var payload preferencesPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	theme, ok := models.ParseThemeMode(payload.ThemeMode)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown themeMode")
		return
	}
	tile, ok := models.ParseTileSize(payload.TileSize)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown tileSize")
		return
	}
	prefs := models.UserPreferences{
		ThemeMode:        theme,
		HideLocalContent: payload.HideLocalContent,
		TileSize:         tile,
		ShowFPSCounter:   payload.ShowFPSCounter,
	}
	for _, grid := range []struct {
		raw  *string
		dst  **models.TileSize
		name string
	}{
		{payload.DiscoverTileSize, &prefs.DiscoverTileSize, "discoverTileSize"},
		{payload.LibraryTileSize, &prefs.LibraryTileSize, "libraryTileSize"},
	} {
		if grid.raw == nil {
			continue
		}
		size, ok := models.ParseTileSize(*grid.raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown "+grid.name)
			return
		}
		*grid.dst = &size
	}

	var mode models.ViewMode
	if payload.ViewMode != "" {
		if mode, ok = models.ParseViewMode(payload.ViewMode); !ok {
			writeError(w, http.StatusBadRequest, "unknown viewMode")
			return
		}
	}

	if err := h.Service.SetPreferences(prefs); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if mode != "" {
		if err := h.Service.SetViewMode(mode); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.current())
}

type avatarPayload struct {
	Avatar string `json:"profileAvatar"`
}

func (h *PreferencesHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, avatarPayload{Avatar: h.Service.Avatar()})
}

// PutAvatar stores the profile avatar. A blank value restores the default.
func (h *PreferencesHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	var payload avatarPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Service.SetAvatar(payload.Avatar); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avatarPayload{Avatar: h.Service.Avatar()})
}
