// Package userstate persists the local user state: preferences, watch history
// and per-title profiles. Reads never fail; a missing or corrupt value decodes
// to its default and the corruption is logged.
package userstate

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"kinoshka/internal/kvstore"
	"kinoshka/internal/logging"
	"kinoshka/models"
)

// Collection limits.
const (
	HistoryLimit = 200
	ProfileLimit = 500
)

const (
	keyHistory      = "history_json"
	keyProfiles     = "profiles_json"
	keyViewMode     = "view_mode"
	keyAvatar       = "profile_avatar"
	keyThemeMode    = "theme_mode"
	keyHideLocal    = "hide_russian_content"
	keyTileSize     = "tile_size" // legacy, also the fallback for both grid contexts
	keyDiscoverTile = "discover_tile_size"
	keyLibraryTile  = "library_tile_size"
	keyFPSCounter   = "show_fps_counter"
)

var ErrStoreRequired = errors.New("state store not provided")

// defaultPreferences backs every preference key that is unset or unreadable.
var defaultPreferences = models.DefaultPreferences()

// TileContext selects which grid a tile size applies to.
type TileContext int

const (
	TileDefault TileContext = iota
	TileDiscover
	TileLibrary
)

func (c TileContext) key() string {
	switch c {
	case TileDiscover:
		return keyDiscoverTile
	case TileLibrary:
		return keyLibraryTile
	default:
		return keyTileSize
	}
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for history and profile timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the local state store. A single process owns the underlying
// store; every method is a self-contained read-modify-write.
type Service struct {
	mu    sync.Mutex
	store kvstore.Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewService creates a state service on top of store.
func NewService(store kvstore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	s := &Service{
		store: store,
		now:   time.Now,
		log:   logging.Component("userstate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// decodeOr parses a stored value, yielding fallback when the value is absent
// or does not parse.
func decodeOr[T any](raw string, present bool, parse func(string) (T, bool), fallback T) T {
	if !present {
		return fallback
	}
	if v, ok := parse(raw); ok {
		return v
	}
	return fallback
}

func parseBool(v string) (bool, bool) {
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func readValue[T any](s *Service, key string, parse func(string) (T, bool), fallback T) T {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("read failed, using default")
		return fallback
	}
	return decodeOr(raw, ok, parse, fallback)
}

func (s *Service) ViewMode() models.ViewMode {
	return readValue(s, keyViewMode, models.ParseViewMode, models.ViewModeList)
}

func (s *Service) SetViewMode(mode models.ViewMode) error {
	return s.store.Set(keyViewMode, string(mode))
}

func (s *Service) ThemeMode() models.ThemeMode {
	return readValue(s, keyThemeMode, models.ParseThemeMode, defaultPreferences.ThemeMode)
}

func (s *Service) SetThemeMode(mode models.ThemeMode) error {
	return s.store.Set(keyThemeMode, string(mode))
}

// TileSize returns the tile size of ctx. The discover and library grids fall
// back to the default tile size until set explicitly.
func (s *Service) TileSize(ctx TileContext) models.TileSize {
	fallback := readValue(s, keyTileSize, models.ParseTileSize, defaultPreferences.TileSize)
	if ctx == TileDefault {
		return fallback
	}
	return readValue(s, ctx.key(), models.ParseTileSize, fallback)
}

func (s *Service) SetTileSize(ctx TileContext, size models.TileSize) error {
	return s.store.Set(ctx.key(), string(size))
}

func (s *Service) HideLocalContent() bool {
	return readValue(s, keyHideLocal, parseBool, defaultPreferences.HideLocalContent)
}

func (s *Service) SetHideLocalContent(hide bool) error {
	return s.store.Set(keyHideLocal, strconv.FormatBool(hide))
}

func (s *Service) FPSCounter() bool {
	return readValue(s, keyFPSCounter, parseBool, defaultPreferences.ShowFPSCounter)
}

func (s *Service) SetFPSCounter(enabled bool) error {
	return s.store.Set(keyFPSCounter, strconv.FormatBool(enabled))
}

// Avatar returns the profile avatar, never blank.
func (s *Service) Avatar() string {
	return readValue(s, keyAvatar, func(v string) (string, bool) {
		return v, strings.TrimSpace(v) != ""
	}, models.DefaultAvatar)
}

func (s *Service) SetAvatar(value string) error {
	return s.store.Set(keyAvatar, normalizeAvatar(value))
}

func normalizeAvatar(v string) string {
	if strings.TrimSpace(v) == "" {
		return models.DefaultAvatar
	}
	return v
}

// Preferences returns the effective preferences, with both grid tile sizes resolved.
func (s *Service) Preferences() models.UserPreferences {
	discover := s.TileSize(TileDiscover)
	library := s.TileSize(TileLibrary)
	return models.UserPreferences{
		ThemeMode:        s.ThemeMode(),
		HideLocalContent: s.HideLocalContent(),
		TileSize:         s.TileSize(TileDefault),
		DiscoverTileSize: &discover,
		LibraryTileSize:  &library,
		ShowFPSCounter:   s.FPSCounter(),
	}
}

// SetPreferences writes every preference in one batch. Nil grid sizes are left unchanged.
func (s *Service) SetPreferences(p models.UserPreferences) error {
	batch := map[string]*string{
		keyThemeMode:  strPtr(string(p.ThemeMode)),
		keyHideLocal:  strPtr(strconv.FormatBool(p.HideLocalContent)),
		keyTileSize:   strPtr(string(p.TileSize)),
		keyFPSCounter: strPtr(strconv.FormatBool(p.ShowFPSCounter)),
	}
	if p.DiscoverTileSize != nil {
		batch[keyDiscoverTile] = strPtr(string(*p.DiscoverTileSize))
	}
	if p.LibraryTileSize != nil {
		batch[keyLibraryTile] = strPtr(string(*p.LibraryTileSize))
	}
	return s.store.Apply(batch)
}

func strPtr(v string) *string { return &v }

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// decodeList decodes a JSON array entry by entry. Entries that do not decode,
// or that carry no positive id, are skipped. Only a value that is not an array
// at all is an error.
func decodeList[T any](data []byte, id func(T) int) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, entry := range raw {
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			continue
		}
		if id(v) <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func historyID(r models.HistoryRecord) int   { return r.KinopoiskID }
func profileID(p models.UserFilmProfile) int { return p.KinopoiskID }

func readList[T any](s *Service, key string, id func(T) int) []T {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("read failed, using empty list")
		return []T{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []T{}
	}
	list, err := decodeList([]byte(raw), id)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stored list is corrupt, using empty list")
		return []T{}
	}
	return list
}

func encodeList[T any](list []T) (*string, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	v := string(data)
	return &v, nil
}
