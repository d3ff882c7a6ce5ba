package progress

import (
	"math"
	"testing"
	"testing/quick"

	"kinoshka/models"
)

func ip(v int) *int { return &v }

func TestDeriveScenarios(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		want     float64
		label    string
		noResult bool
	}{
		{
			name:  "mid third season",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(3), WatchedSeasons: ip(2), WatchedEpisodes: ip(5), TotalEpisodesInSeason: ip(10)},
			want:  0.5,
			label: "S 2/3 • E 5/10",
		},
		{
			name:  "single season watched ignores episodes",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(1), WatchedSeasons: ip(1), WatchedEpisodes: ip(2), TotalEpisodes: ip(8)},
			want:  1,
			label: "S 1/1 • E 8/8",
		},
		{
			name:  "heuristic per season rounds up",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(3), TotalEpisodes: ip(10), WatchedSeasons: ip(1), WatchedEpisodes: ip(2)},
			want:  (0 + 2.0/4.0) / 3,
			label: "S 1/3 • E 2/4",
		},
		{
			name:  "whole seasons without episode detail",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(4), WatchedSeasons: ip(2)},
			want:  0.5,
			label: "S 2/4",
		},
		{
			name:  "unknown totals with activity is complete",
			in:    Input{Type: models.FilmTypeTVSeries, WatchedSeasons: ip(2), WatchedEpisodes: ip(3)},
			want:  1,
			label: "S 2 • E 3",
		},
		{
			name:  "watched seasons bounded by total",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(2), WatchedSeasons: ip(7)},
			want:  1,
			label: "S 2/2",
		},
		{
			name:  "known totals nothing watched",
			in:    Input{Type: models.FilmTypeTVSeries, TotalSeasons: ip(5)},
			want:  0,
			label: "S 0/5",
		},
		{
			name:  "negative counters clamp",
			in:    Input{Type: models.FilmTypeMiniSeries, TotalSeasons: ip(2), WatchedSeasons: ip(-3), WatchedEpisodes: ip(-1)},
			want:  0,
			label: "S 0/2",
		},
		{
			name:     "no data",
			in:       Input{Type: models.FilmTypeTVSeries, WatchedSeasons: ip(0), WatchedEpisodes: ip(0)},
			noResult: true,
		},
		{
			name:     "film has no progress",
			in:       Input{Type: models.FilmTypeFilm, TotalSeasons: ip(1), WatchedSeasons: ip(1)},
			noResult: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Derive(tc.in)
			if tc.noResult {
				if ok {
					t.Fatalf("expected no progress, got %+v", got)
				}
				return
			}
			if !ok {
				t.Fatalf("expected progress")
			}
			if math.Abs(got.Progress-tc.want) > 1e-9 {
				t.Fatalf("progress = %v, want %v", got.Progress, tc.want)
			}
			if got.Label != tc.label {
				t.Fatalf("label = %q, want %q", got.Label, tc.label)
			}
		})
	}
}

func optional(present bool, v int8) *int {
	if !present {
		return nil
	}
	n := int(v)
	return &n
}

func TestDeriveIsBounded(t *testing.T) {
	f := func(ws, we, tis, ts, te int8, pws, pwe, ptis, pts, pte bool) bool {
		got, ok := Derive(Input{
			Type:                  models.FilmTypeTVSeries,
			WatchedSeasons:        optional(pws, ws),
			WatchedEpisodes:       optional(pwe, we),
			TotalEpisodesInSeason: optional(ptis, tis),
			TotalSeasons:          optional(pts, ts),
			TotalEpisodes:         optional(pte, te),
		})
		if !ok {
			return true
		}
		return got.Progress >= 0 && got.Progress <= 1
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDeriveNoDataRegardlessOfSeasonTotal(t *testing.T) {
	f := func(tis int8) bool {
		_, ok := Derive(Input{
			Type:                  models.FilmTypeTVSeries,
			WatchedSeasons:        ip(0),
			WatchedEpisodes:       ip(0),
			TotalEpisodesInSeason: ip(int(tis)),
		})
		return !ok
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDeriveSingleSeasonCompletion(t *testing.T) {
	f := func(we, tis, te int8, pwe, ptis, pte bool) bool {
		got, ok := Derive(Input{
			Type:                  models.FilmTypeTVSeries,
			TotalSeasons:          ip(1),
			WatchedSeasons:        ip(1),
			WatchedEpisodes:       optional(pwe, we),
			TotalEpisodesInSeason: optional(ptis, tis),
			TotalEpisodes:         optional(pte, te),
		})
		return ok && got.Progress == 1
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestForItemUsesItemType(t *testing.T) {
	item := models.LibraryItem{
		Type:           models.StringPtr(models.FilmTypeTVSeries),
		WatchedSeasons: ip(1),
		TotalSeasons:   ip(2),
	}
	got, ok := ForItem(item)
	if !ok || got.Progress != 0.5 {
		t.Fatalf("ForItem = %+v, %v", got, ok)
	}

	item.Type = nil
	if _, ok := ForItem(item); ok {
		t.Fatalf("untyped item should have no progress")
	}
}
