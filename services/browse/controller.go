package browse

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"kinoshka/internal/logging"
	"kinoshka/models"
	"kinoshka/services/library"
	"kinoshka/services/metadata"
	"kinoshka/services/progress"
	"kinoshka/services/userstate"
)

// Catalog is the remote catalog as seen by the screens.
type Catalog interface {
	Popular(ctx context.Context, category models.DiscoverCategory, page int) ([]models.FilmItem, error)
	Search(ctx context.Context, query string, page int) ([]models.FilmItem, error)
	DetailBundle(ctx context.Context, id int) (models.DetailBundle, error)
}

// Store is the local state the screens read and write.
type Store interface {
	History() []models.HistoryRecord
	Profiles() []models.UserFilmProfile
	Profile(id int) (models.UserFilmProfile, bool)
	Avatar() string
	Preferences() models.UserPreferences
	RemoveHistory(id int) error
	RecordWatch(details models.FilmDetails) (models.UserFilmProfile, error)
	SaveProfile(details models.FilmDetails, edit models.ProfileEdit) (models.UserFilmProfile, error)
	SetAvatar(value string) error
	SetThemeMode(mode models.ThemeMode) error
	SetHideLocalContent(hide bool) error
	SetTileSize(ctx userstate.TileContext, size models.TileSize) error
	ImportBackup(raw []byte) error
}

var (
	_ Catalog = (*metadata.Service)(nil)
	_ Store   = (*userstate.Service)(nil)
)

// Controller runs screen commands: it performs the I/O a command needs and
// returns the resulting state. It keeps no state of its own.
type Controller struct {
	catalog Catalog
	store   Store
	log     zerolog.Logger
}

func NewController(catalog Catalog, store Store) *Controller {
	return &Controller{
		catalog: catalog,
		store:   store,
		log:     logging.Component("browse"),
	}
}

// Init builds the first state from the store and loads the discover page.
func (c *Controller) Init(ctx context.Context) HomeState {
	return c.loadFirstPage(ctx, c.Refresh(InitialState()))
}

// Refresh rebuilds the library, avatar and preferences from the store. The
// store may change outside the session, so callers refresh before reading.
func (c *Controller) Refresh(s HomeState) HomeState {
	s = c.refresh(s)
	return Reduce(s, PreferencesChanged{Preferences: c.store.Preferences()})
}

// RefreshDetails reloads the user's profile for the open title.
func (c *Controller) RefreshDetails(d DetailsState) DetailsState {
	if d.Bundle == nil {
		return d
	}
	profile, ok := c.store.Profile(d.Bundle.Details.KinopoiskID)
	return withProfile(d, profile, ok)
}

// Dispatch applies a pure message; useful for input that needs no I/O.
func (c *Controller) Dispatch(s HomeState, msg Msg) HomeState {
	return Reduce(s, msg)
}

// SubmitSearch searches for the current query, or reloads the discover page
// when the query is blank.
func (c *Controller) SubmitSearch(ctx context.Context, s HomeState) HomeState {
	s.IsSearch = strings.TrimSpace(s.Query) != ""
	return c.loadFirstPage(ctx, s)
}

// Retry reloads the first page of whatever is currently shown.
func (c *Controller) Retry(ctx context.Context, s HomeState) HomeState {
	s.IsSearch = s.IsSearch && strings.TrimSpace(s.Query) != ""
	return c.loadFirstPage(ctx, s)
}

// SelectCategory switches the discover collection. Reselecting the shown
// collection does nothing.
func (c *Controller) SelectCategory(ctx context.Context, s HomeState, category models.DiscoverCategory) HomeState {
	if s.Category == category && !s.IsSearch {
		return s
	}
	s = Reduce(s, CategorySelected{Category: category})
	return c.loadFirstPage(ctx, s)
}

// LoadMore fetches the next page when one may exist.
func (c *Controller) LoadMore(ctx context.Context, s HomeState) HomeState {
	if !s.CanLoadMore() {
		return s
	}
	query := strings.TrimSpace(s.Query)
	if s.IsSearch && query == "" {
		return s
	}
	next := s.Page + 1
	s = Reduce(s, PageRequested{Search: s.IsSearch, Page: next})
	return c.fetch(ctx, s, next)
}

func (c *Controller) loadFirstPage(ctx context.Context, s HomeState) HomeState {
	s = Reduce(s, PageRequested{Search: s.IsSearch, Page: 1})
	return c.fetch(ctx, s, 1)
}

func (c *Controller) fetch(ctx context.Context, s HomeState, page int) HomeState {
	var (
		items []models.FilmItem
		err   error
	)
	if s.IsSearch {
		items, err = c.catalog.Search(ctx, strings.TrimSpace(s.Query), page)
	} else {
		items, err = c.catalog.Popular(ctx, s.Category, page)
	}
	if err != nil {
		c.log.Warn().Err(err).Int("page", page).Bool("search", s.IsSearch).Msg("catalog page failed")
		return Reduce(s, PageFailed{Page: page, Message: metadata.UserMessage(err)})
	}
	return Reduce(s, PageLoaded{Page: page, Items: items})
}

// Watch records playback of a title and refreshes the library.
func (c *Controller) Watch(s HomeState, details models.FilmDetails) (HomeState, error) {
	if _, err := c.store.RecordWatch(details); err != nil {
		return s, err
	}
	return c.refresh(s), nil
}

func (c *Controller) RemoveFromHistory(s HomeState, id int) (HomeState, error) {
	if err := c.store.RemoveHistory(id); err != nil {
		return s, err
	}
	return c.refresh(s), nil
}

// SaveProfile stores the user's edit for the title shown in d.
func (c *Controller) SaveProfile(s HomeState, d DetailsState, edit models.ProfileEdit) (HomeState, DetailsState, error) {
	if d.Bundle == nil {
		return s, d, ErrNoDetails
	}
	d.Saving = false
	profile, err := c.store.SaveProfile(d.Bundle.Details, edit)
	if err != nil {
		return s, d, err
	}
	d = withProfile(d, profile, true)
	return c.refresh(s), d, nil
}

func (c *Controller) SetAvatar(s HomeState, avatar string) (HomeState, error) {
	if err := c.store.SetAvatar(avatar); err != nil {
		return s, err
	}
	s.Avatar = c.store.Avatar()
	return s, nil
}

func (c *Controller) SetTheme(s HomeState, mode models.ThemeMode) (HomeState, error) {
	if err := c.store.SetThemeMode(mode); err != nil {
		return s, err
	}
	s.Theme = mode
	return s, nil
}

func (c *Controller) SetHideLocal(s HomeState, hide bool) (HomeState, error) {
	if err := c.store.SetHideLocalContent(hide); err != nil {
		return s, err
	}
	s.HideLocal = hide
	return s, nil
}

func (c *Controller) SetTileSize(s HomeState, ctx userstate.TileContext, size models.TileSize) (HomeState, error) {
	if err := c.store.SetTileSize(ctx, size); err != nil {
		return s, err
	}
	return Reduce(s, PreferencesChanged{Preferences: c.store.Preferences()}), nil
}

// Import restores a backup and reloads everything derived from the store.
func (c *Controller) Import(s HomeState, raw []byte) (HomeState, error) {
	if err := c.store.ImportBackup(raw); err != nil {
		return s, err
	}
	return c.Refresh(s), nil
}

// LoadDetails loads a title with its sections and the user's profile.
func (c *Controller) LoadDetails(ctx context.Context, id int) DetailsState {
	bundle, err := c.catalog.DetailBundle(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Int("id", id).Msg("details failed")
		return DetailsState{Error: metadata.UserMessage(err)}
	}
	profile, ok := c.store.Profile(id)
	return withProfile(DetailsState{Bundle: &bundle}, profile, ok)
}

func withProfile(d DetailsState, profile models.UserFilmProfile, ok bool) DetailsState {
	d.Profile, d.Progress = nil, nil
	if !ok {
		return d
	}
	d.Profile = &profile
	if wp, has := progress.ForProfile(profile); has {
		d.Progress = &wp
	}
	return d
}

func (c *Controller) refresh(s HomeState) HomeState {
	return Reduce(s, LibraryRefreshed{
		Library: library.Build(c.store.History(), c.store.Profiles()),
		Avatar:  c.store.Avatar(),
	})
}
