package handlers_test

import (
	"net/http"
	"testing"

	"kinoshka/models"
	"kinoshka/services/userstate"
)

type prefsBody struct {
	ThemeMode        string  `json:"themeMode"`
	HideLocalContent bool    `json:"hideRussianContent"`
	TileSize         string  `json:"tileSize"`
	DiscoverTileSize *string `json:"discoverTileSize"`
	LibraryTileSize  *string `json:"libraryTileSize"`
	ShowFPSCounter   bool    `json:"showFpsCounter"`
	ViewMode         string  `json:"viewMode"`
}

func TestPreferencesDefaults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/preferences", nil)
	expectStatus(t, rec, http.StatusOK)
	body := decode[prefsBody](t, rec)

	if body.ThemeMode != "CURRENT" || body.TileSize != "MEDIUM" || body.ViewMode != "LIST" {
		t.Fatalf("unexpected defaults %+v", body)
	}
	if body.DiscoverTileSize == nil || *body.DiscoverTileSize != "MEDIUM" {
		t.Fatalf("expected discover tile size to fall back to MEDIUM, got %v", body.DiscoverTileSize)
	}
}

func TestPutPreferences(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/preferences", map[string]any{
		"themeMode":          "AMOLED",
		"hideRussianContent": true,
		"tileSize":           "LARGE",
		"libraryTileSize":    "COMPACT",
		"showFpsCounter":     true,
		"viewMode":           "GRID",
	})
	expectStatus(t, rec, http.StatusOK)
	body := decode[prefsBody](t, rec)

	if body.ThemeMode != "AMOLED" || !body.HideLocalContent || !body.ShowFPSCounter {
		t.Fatalf("unexpected preferences %+v", body)
	}
	if *body.DiscoverTileSize != "LARGE" {
		t.Fatalf("unset discover size should follow tileSize, got %s", *body.DiscoverTileSize)
	}
	if *body.LibraryTileSize != "COMPACT" {
		t.Fatalf("expected COMPACT library size, got %s", *body.LibraryTileSize)
	}
	if s.state.ViewMode() != models.ViewModeGrid {
		t.Fatalf("expected GRID view mode")
	}
	if s.state.TileSize(userstate.TileLibrary) != models.TileCompact {
		t.Fatalf("library tile size not stored")
	}
}

func TestPutPreferencesRejectsUnknownEnums(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]map[string]any{
		"theme":    {"themeMode": "SEPIA", "tileSize": "LARGE"},
		"tile":     {"themeMode": "DARK", "tileSize": "HUGE"},
		"grid":     {"themeMode": "DARK", "tileSize": "LARGE", "discoverTileSize": "HUGE"},
		"viewMode": {"themeMode": "DARK", "tileSize": "LARGE", "viewMode": "TABLE"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			expectStatus(t, s.do(t, http.MethodPut, "/api/preferences", payload), http.StatusBadRequest)
		})
	}
	if s.state.ThemeMode() != models.ThemeCurrent {
		t.Fatalf("rejected update must not be stored")
	}
}

func TestAvatar(t *testing.T) {
	s := newTestServer(t)

	body := decode[map[string]string](t, s.do(t, http.MethodGet, "/api/avatar", nil))
	if body["profileAvatar"] != models.DefaultAvatar {
		t.Fatalf("expected default avatar, got %q", body["profileAvatar"])
	}

	rec := s.do(t, http.MethodPut, "/api/avatar", map[string]string{"profileAvatar": "🦊"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["profileAvatar"]; got != "🦊" {
		t.Fatalf("expected stored avatar, got %q", got)
	}

	rec = s.do(t, http.MethodPut, "/api/avatar", map[string]string{"profileAvatar": "   "})
	if got := decode[map[string]string](t, rec)["profileAvatar"]; got != models.DefaultAvatar {
		t.Fatalf("blank avatar should restore default, got %q", got)
	}
}
