// Package browse holds the screen state of the catalog and library views as
// plain values. Reduce computes the next state from a message; Controller
// performs the I/O and feeds the results through Reduce.
package browse

import (
	"kinoshka/models"
)

// HomeTab is the top-level section of the home screen.
type HomeTab string

const (
	TabCatalog HomeTab = "CATALOG"
	TabHistory HomeTab = "HISTORY"
)

// ParseHomeTab resolves a tab name.
func ParseHomeTab(v string) (HomeTab, bool) {
	switch HomeTab(v) {
	case TabCatalog, TabHistory:
		return HomeTab(v), true
	}
	return "", false
}

// HomeState is the complete state of the home screen.
type HomeState struct {
	Loading          bool                    `json:"loading"`
	LoadingMore      bool                    `json:"loadingMore"`
	Error            string                  `json:"error,omitempty"`
	Items            []models.FilmItem       `json:"items"`
	Query            string                  `json:"query"`
	IsSearch         bool                    `json:"isSearchResult"`
	Tab              HomeTab                 `json:"tab"`
	Library          []models.LibraryItem    `json:"library"`
	Avatar           string                  `json:"profileAvatar"`
	Category         models.DiscoverCategory `json:"discoverCategory"`
	Page             int                     `json:"currentPage"`
	HasMore          bool                    `json:"hasMore"`
	Theme            models.ThemeMode        `json:"themeMode"`
	HideLocal        bool                    `json:"hideRussianContent"`
	TileSize         models.TileSize         `json:"tileSize"`
	DiscoverTileSize models.TileSize         `json:"discoverTileSize"`
	LibraryTileSize  models.TileSize         `json:"libraryTileSize"`
}

// InitialState is the state before anything has been loaded.
func InitialState() HomeState {
	return HomeState{
		Loading:          true,
		Items:            []models.FilmItem{},
		Tab:              TabCatalog,
		Library:          []models.LibraryItem{},
		Avatar:           models.DefaultAvatar,
		Category:         models.DiscoverPopular,
		Page:             1,
		HasMore:          true,
		Theme:            models.ThemeCurrent,
		TileSize:         models.TileMedium,
		DiscoverTileSize: models.TileMedium,
		LibraryTileSize:  models.TileMedium,
	}
}

// CanLoadMore reports whether another page may be requested.
func (s HomeState) CanLoadMore() bool {
	return !s.Loading && !s.LoadingMore && s.HasMore
}

// DetailsState is the state of the title details screen.
type DetailsState struct {
	Loading  bool                    `json:"loading"`
	Error    string                  `json:"error,omitempty"`
	Bundle   *models.DetailBundle    `json:"bundle,omitempty"`
	Profile  *models.UserFilmProfile `json:"userProfile,omitempty"`
	Progress *models.WatchProgress   `json:"progress,omitempty"`
	Saving   bool                    `json:"savingProfile"`
}

// VisibleItems returns the catalog items, without local-market titles when
// they are hidden.
func (s HomeState) VisibleItems() []models.FilmItem {
	if !s.HideLocal {
		return s.Items
	}
	out := make([]models.FilmItem, 0, len(s.Items))
	for _, item := range s.Items {
		if !item.IsLocal() {
			out = append(out, item)
		}
	}
	return out
}
