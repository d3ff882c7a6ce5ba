package models

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UntitledTitle is shown when a title has neither a localized nor an original name.
const UntitledTitle = "Без названия"

// Title types reported by the catalog API.
const (
	FilmTypeFilm       = "FILM"
	FilmTypeVideo      = "VIDEO"
	FilmTypeTVSeries   = "TV_SERIES"
	FilmTypeMiniSeries = "MINI_SERIES"
	FilmTypeTVShow     = "TV_SHOW"
)

// IsSerialType reports whether titles of the given type are split into seasons.
func IsSerialType(filmType string) bool {
	switch filmType {
	case FilmTypeTVSeries, FilmTypeMiniSeries, FilmTypeTVShow:
		return true
	}
	return false
}

// NameOnly is the catalog's {genre}/{country} wrapper.
type NameOnly struct {
	Genre   *string `json:"genre,omitempty"`
	Country *string `json:"country,omitempty"`
}

// IsLocalContent reports whether any production country is a local market
// ("Россия" or "СССР"), compared with Russian case rules.
func IsLocalContent(countries []NameOnly) bool {
	lower := cases.Lower(language.Russian)
	for _, c := range countries {
		if c.Country == nil {
			continue
		}
		switch lower.String(strings.TrimSpace(*c.Country)) {
		case "россия", "ссср":
			return true
		}
	}
	return false
}

func displayTitle(nameRu, nameOriginal *string) string {
	if nameRu != nil {
		return *nameRu
	}
	if nameOriginal != nil {
		return *nameOriginal
	}
	return UntitledTitle
}

func ratingText(r *float64) *string {
	if r == nil {
		return nil
	}
	s := fmt.Sprintf("KP %.1f", *r)
	return &s
}

func yearText(y *int) *string {
	if y == nil {
		return nil
	}
	s := strconv.Itoa(*y)
	return &s
}

// FilmItem is an entry of a catalog page or search result.
type FilmItem struct {
	KinopoiskID      int        `json:"kinopoiskId"`
	NameRu           *string    `json:"nameRu,omitempty"`
	NameOriginal     *string    `json:"nameOriginal,omitempty"`
	PosterURLPreview *string    `json:"posterUrlPreview,omitempty"`
	RatingKinopoisk  *float64   `json:"ratingKinopoisk,omitempty"`
	Year             *int       `json:"year,omitempty"`
	Countries        []NameOnly `json:"countries"`
}

func (f FilmItem) DisplayTitle() string { return displayTitle(f.NameRu, f.NameOriginal) }
func (f FilmItem) Subtitle() *string    { return yearText(f.Year) }
func (f FilmItem) RatingText() *string  { return ratingText(f.RatingKinopoisk) }
func (f FilmItem) IsLocal() bool        { return IsLocalContent(f.Countries) }

// FilmsResponse is a page of catalog items.
type FilmsResponse struct {
	Items []FilmItem `json:"items"`
}

// SearchResponse is a page of keyword search results.
type SearchResponse struct {
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
	Items      []FilmItem `json:"items"`
}

// FilmDetails is the full record of a single title.
type FilmDetails struct {
	KinopoiskID      int        `json:"kinopoiskId"`
	KinopoiskHDID    *string    `json:"kinopoiskHDId,omitempty"`
	IMDBID           *string    `json:"imdbId,omitempty"`
	NameRu           *string    `json:"nameRu,omitempty"`
	NameEn           *string    `json:"nameEn,omitempty"`
	NameOriginal     *string    `json:"nameOriginal,omitempty"`
	PosterURL        *string    `json:"posterUrl,omitempty"`
	PosterURLPreview *string    `json:"posterUrlPreview,omitempty"`
	CoverURL         *string    `json:"coverUrl,omitempty"`
	LogoURL          *string    `json:"logoUrl,omitempty"`
	RatingKinopoisk  *float64   `json:"ratingKinopoisk,omitempty"`
	RatingIMDB       *float64   `json:"ratingImdb,omitempty"`
	WebURL           *string    `json:"webUrl,omitempty"`
	Year             *int       `json:"year,omitempty"`
	FilmLength       *int       `json:"filmLength,omitempty"`
	Slogan           *string    `json:"slogan,omitempty"`
	Description      *string    `json:"description,omitempty"`
	ShortDescription *string    `json:"shortDescription,omitempty"`
	Type             *string    `json:"type,omitempty"`
	RatingAgeLimits  *string    `json:"ratingAgeLimits,omitempty"`
	StartYear        *int       `json:"startYear,omitempty"`
	EndYear          *int       `json:"endYear,omitempty"`
	Serial           *bool      `json:"serial,omitempty"`
	Completed        *bool      `json:"completed,omitempty"`
	Genres           []NameOnly `json:"genres"`
	Countries        []NameOnly `json:"countries"`
}

// IsSerial reports whether the title has seasons.
func (d FilmDetails) IsSerial() bool {
	return d.Type != nil && IsSerialType(*d.Type)
}

func (d FilmDetails) DisplayTitle() string { return displayTitle(d.NameRu, d.NameOriginal) }
func (d FilmDetails) Subtitle() *string    { return yearText(d.Year) }
func (d FilmDetails) RatingText() *string  { return ratingText(d.RatingKinopoisk) }
func (d FilmDetails) IsLocal() bool        { return IsLocalContent(d.Countries) }

// Poster returns the preview poster, falling back to the full-size one.
func (d FilmDetails) Poster() *string {
	if d.PosterURLPreview != nil {
		return d.PosterURLPreview
	}
	return d.PosterURL
}

// SeasonsResponse lists the seasons of a serial.
type SeasonsResponse struct {
	Total int      `json:"total"`
	Items []Season `json:"items"`
}

// Season is a numbered group of episodes.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"`
}

// Episode is a single episode of a season.
type Episode struct {
	SeasonNumber  int     `json:"seasonNumber"`
	EpisodeNumber int     `json:"episodeNumber"`
	NameRu        *string `json:"nameRu,omitempty"`
	NameEn        *string `json:"nameEn,omitempty"`
	Synopsis      *string `json:"synopsis,omitempty"`
	ReleaseDate   *string `json:"releaseDate,omitempty"`
}

// LinksResponse lists similar or related titles.
type LinksResponse struct {
	Total int        `json:"total"`
	Items []FilmLink `json:"items"`
}

// FilmLink points at another title.
type FilmLink struct {
	FilmID           *int    `json:"filmId,omitempty"`
	KinopoiskID      *int    `json:"kinopoiskId,omitempty"`
	NameRu           *string `json:"nameRu,omitempty"`
	NameEn           *string `json:"nameEn,omitempty"`
	NameOriginal     *string `json:"nameOriginal,omitempty"`
	PosterURL        *string `json:"posterUrl,omitempty"`
	PosterURLPreview *string `json:"posterUrlPreview,omitempty"`
	RelationType     *string `json:"relationType,omitempty"`
}

// ID returns the linked title id, preferring kinopoiskId over filmId.
func (l FilmLink) ID() int {
	if l.KinopoiskID != nil {
		return *l.KinopoiskID
	}
	if l.FilmID != nil {
		return *l.FilmID
	}
	return 0
}

// ImagesResponse is a page of stills.
type ImagesResponse struct {
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
	Items      []FilmImage `json:"items"`
}

// FilmImage is a still or poster image.
type FilmImage struct {
	ImageURL   *string `json:"imageUrl,omitempty"`
	PreviewURL *string `json:"previewUrl,omitempty"`
}

// DetailBundle is a title with all of its auxiliary sections.
type DetailBundle struct {
	Details   FilmDetails `json:"details"`
	Seasons   []Season    `json:"seasons"`
	Similars  []FilmLink  `json:"similars"`
	Relations []FilmLink  `json:"relations"`
	Images    []FilmImage `json:"images"`
}
