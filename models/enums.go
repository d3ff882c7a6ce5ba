package models

import "github.com/goccy/go-json"

// parseEnum returns the enumerator whose name matches v exactly.
func parseEnum[T ~string](v string, values []T) (T, bool) {
	for _, candidate := range values {
		if string(candidate) == v {
			return candidate, true
		}
	}
	var zero T
	return zero, false
}

// ViewMode is the saved catalog layout.
type ViewMode string

const (
	ViewModeList ViewMode = "LIST"
	ViewModeGrid ViewMode = "GRID"
)

var viewModes = []ViewMode{ViewModeList, ViewModeGrid}

func ParseViewMode(v string) (ViewMode, bool) { return parseEnum(v, viewModes) }

// ThemeMode selects the application colour scheme.
type ThemeMode string

const (
	ThemeCurrent ThemeMode = "CURRENT"
	ThemeDark    ThemeMode = "DARK"
	ThemeAmoled  ThemeMode = "AMOLED"
)

var themeModes = []ThemeMode{ThemeCurrent, ThemeDark, ThemeAmoled}

func ParseThemeMode(v string) (ThemeMode, bool) { return parseEnum(v, themeModes) }

// TileSize controls poster grid density.
type TileSize string

const (
	TileCompact  TileSize = "COMPACT"
	TileMedium   TileSize = "MEDIUM"
	TileLarge    TileSize = "LARGE"
	TileVertical TileSize = "VERTICAL"
)

var tileSizes = []TileSize{TileCompact, TileMedium, TileLarge, TileVertical}

func ParseTileSize(v string) (TileSize, bool) { return parseEnum(v, tileSizes) }

// Columns returns the grid column count used for the tile size.
func (t TileSize) Columns() int {
	switch t {
	case TileCompact:
		return 4
	case TileLarge:
		return 2
	case TileVertical:
		return 1
	default:
		return 3
	}
}

// UserFilmStatus is the user's classification of a title. The zero value means
// the title carries no status.
type UserFilmStatus string

const (
	StatusNone       UserFilmStatus = ""
	StatusWatching   UserFilmStatus = "WATCHING"
	StatusPlanned    UserFilmStatus = "PLANNED"
	StatusCompleted  UserFilmStatus = "COMPLETED"
	StatusRewatching UserFilmStatus = "REWATCHING"
	StatusOnHold     UserFilmStatus = "ON_HOLD"
	StatusDropped    UserFilmStatus = "DROPPED"
)

var userFilmStatuses = []UserFilmStatus{
	StatusWatching,
	StatusPlanned,
	StatusCompleted,
	StatusRewatching,
	StatusOnHold,
	StatusDropped,
}

// UserFilmStatuses lists every status in display order.
func UserFilmStatuses() []UserFilmStatus {
	out := make([]UserFilmStatus, len(userFilmStatuses))
	copy(out, userFilmStatuses)
	return out
}

func ParseUserFilmStatus(v string) (UserFilmStatus, bool) { return parseEnum(v, userFilmStatuses) }

// Label returns the display label shown in the library.
func (s UserFilmStatus) Label() string {
	switch s {
	case StatusWatching:
		return "Смотрю"
	case StatusPlanned:
		return "В планах"
	case StatusCompleted:
		return "Просмотрено"
	case StatusRewatching:
		return "Пересматриваю"
	case StatusOnHold:
		return "Отложено"
	case StatusDropped:
		return "Брошено"
	default:
		return "Без статуса"
	}
}

// UnmarshalJSON decodes a status name. Unknown names and non-string values
// decode to StatusNone so one stale entry never fails a whole collection.
func (s *UserFilmStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusNone
		return nil
	}
	parsed, ok := ParseUserFilmStatus(raw)
	if !ok {
		*s = StatusNone
		return nil
	}
	*s = parsed
	return nil
}

// DiscoverCategory is a catalog collection shown on the discover screen.
type DiscoverCategory string

const (
	DiscoverPopular DiscoverCategory = "POPULAR"
	DiscoverTop250  DiscoverCategory = "TOP_250"
	DiscoverSeries  DiscoverCategory = "SERIES"
	DiscoverAwait   DiscoverCategory = "AWAIT"
)

var discoverCategories = []DiscoverCategory{DiscoverPopular, DiscoverTop250, DiscoverSeries, DiscoverAwait}

func ParseDiscoverCategory(v string) (DiscoverCategory, bool) {
	return parseEnum(v, discoverCategories)
}

// CollectionType returns the remote collection name for the category.
func (c DiscoverCategory) CollectionType() string {
	switch c {
	case DiscoverTop250:
		return "TOP_250_MOVIES"
	case DiscoverSeries:
		return "TOP_250_TV_SHOWS"
	case DiscoverAwait:
		return "CLOSES_RELEASES"
	default:
		return "TOP_POPULAR_ALL"
	}
}

// Title returns the display title of the category.
func (c DiscoverCategory) Title() string {
	switch c {
	case DiscoverTop250:
		return "Топ 250"
	case DiscoverSeries:
		return "Сериалы"
	case DiscoverAwait:
		return "Ожидаемые"
	default:
		return "Популярное"
	}
}
