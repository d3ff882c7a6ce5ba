// Package progress derives a bounded completion fraction and a short label
// from the sparse season/episode counters kept on a library profile.
package progress

import (
	"fmt"
	"math"
	"strings"

	"kinoshka/models"
)

// LabelSeparator joins the season and episode fragments of a label.
const LabelSeparator = " • "

// Input holds the raw counters. Nil means unknown; negatives are treated as 0.
type Input struct {
	Type                  string
	WatchedSeasons        *int
	WatchedEpisodes       *int // within the current season
	TotalEpisodesInSeason *int
	TotalSeasons          *int
	TotalEpisodes         *int
}

// ForItem derives progress for a merged library entry.
func ForItem(item models.LibraryItem) (models.WatchProgress, bool) {
	return Derive(Input{
		Type:                  models.StringVal(item.Type, ""),
		WatchedSeasons:        item.WatchedSeasons,
		WatchedEpisodes:       item.WatchedEpisodes,
		TotalEpisodesInSeason: item.TotalEpisodesInSeason,
		TotalSeasons:          item.TotalSeasons,
		TotalEpisodes:         item.TotalEpisodes,
	})
}

// ForProfile derives progress for a stored profile.
func ForProfile(p models.UserFilmProfile) (models.WatchProgress, bool) {
	return Derive(Input{
		Type:                  models.StringVal(p.Type, ""),
		WatchedSeasons:        p.WatchedSeasons,
		WatchedEpisodes:       p.WatchedEpisodes,
		TotalEpisodesInSeason: p.TotalEpisodesInSeason,
		TotalSeasons:          p.TotalSeasons,
		TotalEpisodes:         p.TotalEpisodes,
	})
}

// Derive returns the progress of a serialized title, or false when the title
// is not serialized or nothing has been tracked for it.
//
// When the per-season episode count was never recorded it is approximated as
// ceil(totalEpisodes / totalSeasons) with a floor of 1. Uneven seasons make
// that approximate; the rounding is kept stable so labels do not shift
// between versions.
func Derive(in Input) (models.WatchProgress, bool) {
	if !models.IsSerialType(in.Type) {
		return models.WatchProgress{}, false
	}

	watchedSeasons := nonNegative(in.WatchedSeasons)
	watchedEpisodes := nonNegative(in.WatchedEpisodes)
	seasonTotal := positive(in.TotalEpisodesInSeason)
	totalSeasons := positive(in.TotalSeasons)
	totalEpisodes := positive(in.TotalEpisodes)

	if watchedSeasons == 0 && watchedEpisodes == 0 && totalSeasons == nil && totalEpisodes == nil {
		return models.WatchProgress{}, false
	}

	boundedSeasons := watchedSeasons
	if totalSeasons != nil && boundedSeasons > *totalSeasons {
		boundedSeasons = *totalSeasons
	}
	singleSeasonDone := totalSeasons != nil && *totalSeasons == 1 && boundedSeasons >= 1

	perSeason := episodesPerSeason(seasonTotal, totalSeasons, totalEpisodes)

	inSeason := watchedEpisodes
	switch {
	case perSeason == nil:
	case singleSeasonDone:
		inSeason = *perSeason
	default:
		inSeason = min(watchedEpisodes, *perSeason)
	}

	var fraction float64
	switch {
	case totalSeasons != nil:
		if singleSeasonDone {
			fraction = 1
			break
		}
		completed := boundedSeasons
		if boundedSeasons <= 0 {
			completed = 0
		} else if inSeason > 0 {
			completed = boundedSeasons - 1
		}
		var part float64
		if perSeason != nil && *perSeason > 0 {
			part = float64(inSeason) / float64(*perSeason)
		}
		fraction = clamp01((float64(completed) + part) / float64(*totalSeasons))
	case watchedEpisodes > 0 || watchedSeasons > 0:
		fraction = 1
	}

	return models.WatchProgress{
		Progress: fraction,
		Label:    label(boundedSeasons, totalSeasons, inSeason, watchedEpisodes, perSeason),
	}, true
}

func episodesPerSeason(seasonTotal, totalSeasons, totalEpisodes *int) *int {
	switch {
	case seasonTotal != nil:
		return seasonTotal
	case totalSeasons == nil || totalEpisodes == nil:
		return nil
	case *totalSeasons == 1:
		return totalEpisodes
	}
	n := int(math.Ceil(float64(*totalEpisodes) / float64(*totalSeasons)))
	if n < 1 {
		n = 1
	}
	return &n
}

func label(seasons int, totalSeasons *int, inSeason, watchedEpisodes int, perSeason *int) string {
	parts := make([]string, 0, 2)
	if totalSeasons != nil {
		parts = append(parts, fmt.Sprintf("S %d/%d", seasons, *totalSeasons))
	} else if seasons > 0 {
		parts = append(parts, fmt.Sprintf("S %d", seasons))
	}
	if perSeason != nil {
		parts = append(parts, fmt.Sprintf("E %d/%d", inSeason, *perSeason))
	} else if watchedEpisodes > 0 {
		parts = append(parts, fmt.Sprintf("E %d", watchedEpisodes))
	}
	return strings.Join(parts, LabelSeparator)
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
