package models

// DefaultAvatar is the profile avatar used when none is set.
const DefaultAvatar = "🎬"

// HistoryRecord is one title the user opened for playback.
type HistoryRecord struct {
	KinopoiskID int     `json:"kinopoiskId"`
	Title       string  `json:"title"`
	Subtitle    *string `json:"subtitle,omitempty"`
	PosterURL   *string `json:"posterUrl,omitempty"`
	RatingText  *string `json:"ratingText,omitempty"`
	IsLocal     *bool   `json:"isRussian,omitempty"`
	ViewedAt    int64   `json:"viewedAt"` // epoch millis
}

// UserFilmProfile is the user's classification of a title. Display metadata is a
// snapshot taken at edit time and is never re-fetched.
type UserFilmProfile struct {
	KinopoiskID           int            `json:"kinopoiskId"`
	Title                 string         `json:"title"`
	Subtitle              *string        `json:"subtitle,omitempty"`
	PosterURL             *string        `json:"posterUrl,omitempty"`
	RatingText            *string        `json:"ratingText,omitempty"`
	Type                  *string        `json:"type,omitempty"`
	IsLocal               *bool          `json:"isRussian,omitempty"`
	Status                UserFilmStatus `json:"status,omitempty"`
	UserRating            *int           `json:"userRating,omitempty"`
	Note                  *string        `json:"note,omitempty"`
	WatchedSeasons        *int           `json:"watchedSeasons,omitempty"`
	WatchedEpisodes       *int           `json:"watchedEpisodes,omitempty"`
	TotalEpisodesInSeason *int           `json:"totalEpisodesInSeason,omitempty"`
	TotalSeasons          *int           `json:"totalSeasons,omitempty"`
	TotalEpisodes         *int           `json:"totalEpisodes,omitempty"`
	UpdatedAt             int64          `json:"updatedAt"` // epoch millis
}

// ProfileEdit carries the user-editable part of a profile.
type ProfileEdit struct {
	Status                UserFilmStatus `json:"status"`
	UserRating            *int           `json:"userRating,omitempty" validate:"omitempty,min=1,max=10"`
	Note                  string         `json:"note,omitempty"`
	WatchedSeasons        *int           `json:"watchedSeasons,omitempty" validate:"omitempty,min=0"`
	WatchedEpisodes       *int           `json:"watchedEpisodes,omitempty" validate:"omitempty,min=0"`
	TotalEpisodesInSeason *int           `json:"totalEpisodesInSeason,omitempty"`
	TotalSeasons          *int           `json:"totalSeasons,omitempty"`
	TotalEpisodes         *int           `json:"totalEpisodes,omitempty"`
}

// UserPreferences is the single-instance preference record.
type UserPreferences struct {
	ThemeMode        ThemeMode `json:"themeMode"`
	HideLocalContent bool      `json:"hideRussianContent"`
	TileSize         TileSize  `json:"tileSize"`
	DiscoverTileSize *TileSize `json:"discoverTileSize,omitempty"`
	LibraryTileSize  *TileSize `json:"libraryTileSize,omitempty"`
	ShowFPSCounter   bool      `json:"showFpsCounter"`
}

// DefaultPreferences returns the preferences of a fresh install.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		ThemeMode: ThemeCurrent,
		TileSize:  TileMedium,
	}
}

// LibraryBackup is the export/import document.
type LibraryBackup struct {
	ExportedAt    int64             `json:"exportedAt"`
	ProfileAvatar string            `json:"profileAvatar"`
	Preferences   *UserPreferences  `json:"preferences,omitempty"`
	History       []HistoryRecord   `json:"history"`
	Profiles      []UserFilmProfile `json:"profiles"`
}

// LibraryItem is the merged display projection of history and profiles.
type LibraryItem struct {
	KinopoiskID           int            `json:"kinopoiskId"`
	Title                 string         `json:"title"`
	Subtitle              *string        `json:"subtitle,omitempty"`
	PosterURL             *string        `json:"posterUrl,omitempty"`
	RatingText            *string        `json:"ratingText,omitempty"`
	Type                  *string        `json:"type,omitempty"`
	IsLocal               bool           `json:"isRussian"`
	ViewedAt              *int64         `json:"viewedAt,omitempty"`
	Status                UserFilmStatus `json:"status,omitempty"`
	UserRating            *int           `json:"userRating,omitempty"`
	Note                  *string        `json:"note,omitempty"`
	WatchedSeasons        *int           `json:"watchedSeasons,omitempty"`
	WatchedEpisodes       *int           `json:"watchedEpisodes,omitempty"`
	TotalEpisodesInSeason *int           `json:"totalEpisodesInSeason,omitempty"`
	TotalSeasons          *int           `json:"totalSeasons,omitempty"`
	TotalEpisodes         *int           `json:"totalEpisodes,omitempty"`
	LastActivity          int64          `json:"lastActivity"`
}

// WatchProgress is the derived completion of a serialized title.
type WatchProgress struct {
	Progress float64 `json:"progress"`
	Label    string  `json:"label"`
}
