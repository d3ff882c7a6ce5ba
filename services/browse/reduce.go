package browse

import (
	"kinoshka/models"
)

// Msg is an input to Reduce.
type Msg interface{ isMsg() }

// QueryChanged updates the search box text.
type QueryChanged struct{ Query string }

// CategorySelected switches the discover collection and leaves search mode.
type CategorySelected struct{ Category models.DiscoverCategory }

// TabSelected switches the home section.
type TabSelected struct{ Tab HomeTab }

// PageRequested marks a page load as started. Page 1 starts a fresh listing.
type PageRequested struct {
	Search bool
	Page   int
}

// PageLoaded delivers the items of a requested page.
type PageLoaded struct {
	Page  int
	Items []models.FilmItem
}

// PageFailed reports a failed page load with a user-facing message.
type PageFailed struct {
	Page    int
	Message string
}

// LibraryRefreshed replaces the library projection and avatar.
type LibraryRefreshed struct {
	Library []models.LibraryItem
	Avatar  string
}

// PreferencesChanged applies the effective preferences.
type PreferencesChanged struct{ Preferences models.UserPreferences }

func (QueryChanged) isMsg()       {}
func (CategorySelected) isMsg()   {}
func (TabSelected) isMsg()        {}
func (PageRequested) isMsg()      {}
func (PageLoaded) isMsg()         {}
func (PageFailed) isMsg()         {}
func (LibraryRefreshed) isMsg()   {}
func (PreferencesChanged) isMsg() {}

// Reduce returns the state that follows s after msg. It never mutates s.
func Reduce(s HomeState, msg Msg) HomeState {
	switch m := msg.(type) {
	case QueryChanged:
		s.Query = m.Query

	case CategorySelected:
		s.Category = m.Category
		s.IsSearch = false
		s.Query = ""

	case TabSelected:
		s.Tab = m.Tab

	case PageRequested:
		s.Error = ""
		if m.Page <= 1 {
			s.Loading = true
			s.LoadingMore = false
			s.IsSearch = m.Search
			s.Page = 1
			s.HasMore = true
		} else {
			s.LoadingMore = true
		}

	case PageLoaded:
		if m.Page <= 1 {
			s.Loading = false
			s.Items = distinctItems(nil, m.Items)
			s.Page = 1
		} else {
			s.LoadingMore = false
			s.Items = distinctItems(s.Items, m.Items)
			if len(m.Items) > 0 {
				s.Page = m.Page
			}
		}
		s.HasMore = len(m.Items) > 0

	case PageFailed:
		if m.Page <= 1 {
			s.Loading = false
		} else {
			s.LoadingMore = false
		}
		s.Error = m.Message

	case LibraryRefreshed:
		s.Library = append([]models.LibraryItem{}, m.Library...)
		if m.Avatar != "" {
			s.Avatar = m.Avatar
		}

	case PreferencesChanged:
		p := m.Preferences
		s.Theme = p.ThemeMode
		s.HideLocal = p.HideLocalContent
		s.TileSize = p.TileSize
		s.DiscoverTileSize = tileOr(p.DiscoverTileSize, p.TileSize)
		s.LibraryTileSize = tileOr(p.LibraryTileSize, p.TileSize)
	}
	return s
}

// distinctItems appends next to current, keeping the first item per id.
func distinctItems(current, next []models.FilmItem) []models.FilmItem {
	out := make([]models.FilmItem, 0, len(current)+len(next))
	seen := make(map[int]struct{}, len(current)+len(next))
	for _, list := range [][]models.FilmItem{current, next} {
		for _, item := range list {
			if _, dup := seen[item.KinopoiskID]; dup {
				continue
			}
			seen[item.KinopoiskID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func tileOr(v *models.TileSize, fallback models.TileSize) models.TileSize {
	if v == nil {
		return fallback
	}
	return *v
}
