// Package library projects watch history and user profiles into the single
// display-ordered list shown on the library screen.
package library

import (
	"sort"
	"strings"

	"kinoshka/models"
)

// Build merges history and profiles. History keeps its stored order and each
// history entry absorbs the profile with the same id; profile values win,
// history values fill the gaps. Profiles without history follow, most
// recently updated first. Every id appears at most once.
func Build(history []models.HistoryRecord, profiles []models.UserFilmProfile) []models.LibraryItem {
	pending := make(map[int]models.UserFilmProfile, len(profiles))
	order := make([]int, 0, len(profiles))
	for _, p := range profiles {
		if _, dup := pending[p.KinopoiskID]; dup {
			continue
		}
		pending[p.KinopoiskID] = p
		order = append(order, p.KinopoiskID)
	}

	items := make([]models.LibraryItem, 0, len(history)+len(profiles))
	seen := make(map[int]struct{}, len(history)+len(profiles))

	for _, h := range history {
		if _, dup := seen[h.KinopoiskID]; dup {
			continue
		}
		seen[h.KinopoiskID] = struct{}{}

		var profile *models.UserFilmProfile
		if p, ok := pending[h.KinopoiskID]; ok {
			profile = &p
			delete(pending, h.KinopoiskID)
		}
		items = append(items, fromHistory(h, profile))
	}

	rest := make([]models.UserFilmProfile, 0, len(pending))
	for _, id := range order {
		if p, ok := pending[id]; ok {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].UpdatedAt > rest[j].UpdatedAt
	})
	for _, p := range rest {
		items = append(items, fromProfile(p))
	}

	return items
}

func fromHistory(h models.HistoryRecord, p *models.UserFilmProfile) models.LibraryItem {
	viewedAt := h.ViewedAt
	item := models.LibraryItem{
		KinopoiskID:  h.KinopoiskID,
		Title:        h.Title,
		Subtitle:     h.Subtitle,
		PosterURL:    h.PosterURL,
		RatingText:   h.RatingText,
		IsLocal:      models.BoolVal(h.IsLocal, false),
		ViewedAt:     &viewedAt,
		LastActivity: h.ViewedAt,
	}
	if p == nil {
		return item
	}

	if strings.TrimSpace(p.Title) != "" {
		item.Title = p.Title
	}
	item.Subtitle = firstNonNil(p.Subtitle, h.Subtitle)
	item.PosterURL = firstNonNil(p.PosterURL, h.PosterURL)
	item.RatingText = firstNonNil(p.RatingText, h.RatingText)
	item.IsLocal = models.BoolVal(firstNonNil(p.IsLocal, h.IsLocal), false)
	applyProfile(&item, *p)
	return item
}

func fromProfile(p models.UserFilmProfile) models.LibraryItem {
	item := models.LibraryItem{
		KinopoiskID:  p.KinopoiskID,
		Title:        p.Title,
		Subtitle:     p.Subtitle,
		PosterURL:    p.PosterURL,
		RatingText:   p.RatingText,
		IsLocal:      models.BoolVal(p.IsLocal, false),
		LastActivity: p.UpdatedAt,
	}
	applyProfile(&item, p)
	return item
}

func applyProfile(item *models.LibraryItem, p models.UserFilmProfile) {
	item.Type = p.Type
	item.Status = p.Status
	item.UserRating = p.UserRating
	item.Note = p.Note
	item.WatchedSeasons = p.WatchedSeasons
	item.WatchedEpisodes = p.WatchedEpisodes
	item.TotalEpisodesInSeason = p.TotalEpisodesInSeason
	item.TotalSeasons = p.TotalSeasons
	item.TotalEpisodes = p.TotalEpisodes
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
