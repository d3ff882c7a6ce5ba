package userstate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"kinoshka/internal/kvstore"
	"kinoshka/models"
)

type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*Service, kvstore.Store) {
	t.Helper()
	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	clock := &tickClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, err := NewService(store, WithClock(clock.now))
	require.NoError(t, err)
	return svc, store
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(nil)
	require.ErrorIs(t, err, ErrStoreRequired)
}

func TestEnumAccessorsFallBack(t *testing.T) {
	svc, store := newTestService(t)

	require.Equal(t, models.ViewModeList, svc.ViewMode())
	require.Equal(t, models.ThemeCurrent, svc.ThemeMode())
	require.Equal(t, models.TileMedium, svc.TileSize(TileDefault))

	require.NoError(t, store.Set(keyThemeMode, "SEPIA"))
	require.NoError(t, store.Set(keyViewMode, "grid"))
	require.NoError(t, store.Set(keyHideLocal, "maybe"))
	require.Equal(t, models.ThemeCurrent, svc.ThemeMode())
	require.Equal(t, models.ViewModeList, svc.ViewMode())
	require.False(t, svc.HideLocalContent())

	require.NoError(t, svc.SetThemeMode(models.ThemeAmoled))
	require.NoError(t, svc.SetViewMode(models.ViewModeGrid))
	require.NoError(t, svc.SetHideLocalContent(true))
	require.NoError(t, svc.SetFPSCounter(true))
	require.Equal(t, models.ThemeAmoled, svc.ThemeMode())
	require.Equal(t, models.ViewModeGrid, svc.ViewMode())
	require.True(t, svc.HideLocalContent())
	require.True(t, svc.FPSCounter())
}

func TestFreshStoreReportsDefaultPreferences(t *testing.T) {
	svc, _ := newTestService(t)

	want := models.DefaultPreferences()
	got := svc.Preferences()
	require.Equal(t, want.ThemeMode, got.ThemeMode)
	require.Equal(t, want.TileSize, got.TileSize)
	require.Equal(t, want.HideLocalContent, got.HideLocalContent)
	require.Equal(t, want.ShowFPSCounter, got.ShowFPSCounter)
	require.Equal(t, want.TileSize, *got.DiscoverTileSize)
	require.Equal(t, want.TileSize, *got.LibraryTileSize)
}

func TestTileSizeContextsFallBackToDefault(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.SetTileSize(TileDefault, models.TileLarge))
	require.Equal(t, models.TileLarge, svc.TileSize(TileDiscover))
	require.Equal(t, models.TileLarge, svc.TileSize(TileLibrary))

	require.NoError(t, svc.SetTileSize(TileLibrary, models.TileCompact))
	require.Equal(t, models.TileLarge, svc.TileSize(TileDiscover))
	require.Equal(t, models.TileCompact, svc.TileSize(TileLibrary))
}

func TestAvatarNeverBlank(t *testing.T) {
	svc, _ := newTestService(t)
	require.Equal(t, models.DefaultAvatar, svc.Avatar())

	require.NoError(t, svc.SetAvatar("   "))
	require.Equal(t, models.DefaultAvatar, svc.Avatar())

	require.NoError(t, svc.SetAvatar("🍿"))
	require.Equal(t, "🍿", svc.Avatar())
}

func TestHistoryCap(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 1; i <= HistoryLimit+25; i++ {
		require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: i, ViewedAt: int64(i)}))
	}
	history := svc.History()
	require.Len(t, history, HistoryLimit)
	require.Equal(t, HistoryLimit+25, history[0].KinopoiskID)
	require.Equal(t, 26, history[len(history)-1].KinopoiskID)
}

func TestProfileCap(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 1; i <= ProfileLimit+3; i++ {
		require.NoError(t, svc.UpsertProfile(models.UserFilmProfile{KinopoiskID: i, UpdatedAt: int64(i)}))
	}
	require.NoError(t, svc.UpsertProfile(models.UserFilmProfile{KinopoiskID: 100, Status: models.StatusDropped}))

	profiles := svc.Profiles()
	require.Len(t, profiles, ProfileLimit)
	require.Equal(t, 100, profiles[0].KinopoiskID)
	require.Equal(t, models.StatusDropped, profiles[0].Status)

	p, ok := svc.Profile(100)
	require.True(t, ok)
	require.Equal(t, models.StatusDropped, p.Status)
	_, ok = svc.Profile(1)
	require.False(t, ok)
}

func TestUpsertHistoryReplacesSameID(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 1, Title: "a", ViewedAt: 1}))
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 2, Title: "b", ViewedAt: 2}))
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 1, Title: "a2", ViewedAt: 3}))

	history := svc.History()
	require.Len(t, history, 2)
	require.Equal(t, "a2", history[0].Title)
	require.Equal(t, 2, history[1].KinopoiskID)
}

func TestTouchHistory(t *testing.T) {
	svc, _ := newTestService(t)
	first := models.HistoryRecord{KinopoiskID: 1, Title: "first", Subtitle: models.StringPtr("1999"), ViewedAt: 1}
	require.NoError(t, svc.UpsertHistory(first))
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 2, Title: "second", ViewedAt: 2}))

	before := svc.History()
	require.NoError(t, svc.TouchHistory(42))
	require.Equal(t, before, svc.History())

	require.NoError(t, svc.TouchHistory(1))
	after := svc.History()
	require.Len(t, after, 2)
	require.Equal(t, 1, after[0].KinopoiskID)
	require.Greater(t, after[0].ViewedAt, first.ViewedAt)

	touched := after[0]
	touched.ViewedAt = first.ViewedAt
	require.Equal(t, first, touched)
}

func TestRemoveAndClearHistory(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 1}))
	require.NoError(t, svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 2}))

	require.NoError(t, svc.RemoveHistory(99))
	require.Len(t, svc.History(), 2)

	require.NoError(t, svc.RemoveHistory(1))
	require.Len(t, svc.History(), 1)

	require.NoError(t, svc.ClearHistory())
	require.Empty(t, svc.History())
}

func TestCorruptBlobsDecodeToEmpty(t *testing.T) {
	svc, store := newTestService(t)
	require.NoError(t, store.Set(keyHistory, "{broken"))
	require.NoError(t, store.Set(keyProfiles, `[{"kinopoiskId":"x"},{"kinopoiskId":5,"title":"ok","status":"UNKNOWN","updatedAt":1}]`))

	require.Empty(t, svc.History())
	profiles := svc.Profiles()
	require.Len(t, profiles, 1)
	require.Equal(t, 5, profiles[0].KinopoiskID)
	require.Equal(t, models.StatusNone, profiles[0].Status)
}

func sampleDetails() models.FilmDetails {
	return models.FilmDetails{
		KinopoiskID:     301,
		NameOriginal:    models.StringPtr("The Matrix"),
		PosterURL:       models.StringPtr("https://img/full.jpg"),
		RatingKinopoisk: func() *float64 { v := 8.54; return &v }(),
		Year:            models.IntPtr(1999),
		Type:            models.StringPtr(models.FilmTypeFilm),
		Countries:       []models.NameOnly{{Country: models.StringPtr("США")}},
	}
}

func TestRecordWatchKeepsClassification(t *testing.T) {
	svc, _ := newTestService(t)
	details := sampleDetails()

	_, err := svc.SaveProfile(details, models.ProfileEdit{
		Status:     models.StatusCompleted,
		UserRating: models.IntPtr(14),
		Note:       "  rewatch in winter ",
	})
	require.NoError(t, err)

	details.NameRu = models.StringPtr("Матрица")
	profile, err := svc.RecordWatch(details)
	require.NoError(t, err)

	require.Equal(t, "Матрица", profile.Title)
	require.Equal(t, models.StatusCompleted, profile.Status)
	require.Equal(t, 10, *profile.UserRating)
	require.Equal(t, "rewatch in winter", *profile.Note)
	require.Equal(t, "KP 8.5", *profile.RatingText)
	require.Equal(t, "1999", *profile.Subtitle)
	require.Equal(t, "https://img/full.jpg", *profile.PosterURL)
	require.False(t, *profile.IsLocal)

	history := svc.History()
	require.Len(t, history, 1)
	require.Equal(t, "Матрица", history[0].Title)
}

func TestSaveProfileClampsCounters(t *testing.T) {
	svc, _ := newTestService(t)
	profile, err := svc.SaveProfile(sampleDetails(), models.ProfileEdit{
		Status:          models.StatusWatching,
		UserRating:      models.IntPtr(-2),
		Note:            "   ",
		WatchedSeasons:  models.IntPtr(-1),
		WatchedEpisodes: models.IntPtr(4),
	})
	require.NoError(t, err)
	require.Equal(t, 1, *profile.UserRating)
	require.Nil(t, profile.Note)
	require.Equal(t, 0, *profile.WatchedSeasons)
	require.Equal(t, 4, *profile.WatchedEpisodes)
	require.Nil(t, profile.TotalSeasons)
}

func TestRecordViewFromCatalogItem(t *testing.T) {
	svc, _ := newTestService(t)
	record, err := svc.RecordView(models.FilmItem{
		KinopoiskID: 9,
		Countries:   []models.NameOnly{{Country: models.StringPtr(" СССР ")}},
	})
	require.NoError(t, err)
	require.Equal(t, models.UntitledTitle, record.Title)
	require.True(t, *record.IsLocal)
	require.Nil(t, record.RatingText)
	require.Equal(t, []models.HistoryRecord{record}, svc.History())
}

type failingStore struct {
	kvstore.Store
	failApply bool
}

func (f *failingStore) Apply(batch map[string]*string) error {
	if f.failApply {
		return errors.New("disk full")
	}
	return f.Store.Apply(batch)
}

func TestWriteErrorsSurface(t *testing.T) {
	base, _ := newTestService(t)
	store := &failingStore{Store: base.store, failApply: true}
	svc, err := NewService(store)
	require.NoError(t, err)

	err = svc.UpsertHistory(models.HistoryRecord{KinopoiskID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Empty(t, svc.History())
}

func ExampleService_TileSize() {
	store, _ := kvstore.NewFileStore(afero.NewMemMapFs(), "/state")
	svc, _ := NewService(store)
	_ = svc.SetTileSize(TileDefault, models.TileCompact)
	fmt.Println(svc.TileSize(TileDiscover), svc.TileSize(TileDiscover).Columns())
	// Output: COMPACT 4
}
