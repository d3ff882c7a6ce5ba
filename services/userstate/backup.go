package userstate

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"kinoshka/models"
)

var (
	ErrBackupInvalid = errors.New("backup is malformed")
	ErrBackupEmpty   = errors.New("backup is empty")
)

var backupFields = []string{"exportedAt", "profileAvatar", "preferences", "history", "profiles"}

// ExportBackup serializes the complete local state as indented JSON.
func (s *Service) ExportBackup() ([]byte, error) {
	prefs := s.Preferences()
	backup := models.LibraryBackup{
		ExportedAt:    s.nowMillis(),
		ProfileAvatar: s.Avatar(),
		Preferences:   &prefs,
		History:       s.History(),
		Profiles:      s.Profiles(),
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// ImportBackup replaces history, profiles and avatar with the backup contents
// and applies whichever preferences it carries. Nothing is written unless the
// whole payload parses. A preference that is missing or invalid keeps its
// current value.
func (s *Service) ImportBackup(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ErrBackupEmpty
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupInvalid, err)
	}
	if !hasAny(fields, backupFields) {
		return ErrBackupEmpty
	}

	history, err := backupList(fields, "history", historyID, HistoryLimit)
	if err != nil {
		return err
	}
	profiles, err := backupList(fields, "profiles", profileID, ProfileLimit)
	if err != nil {
		return err
	}

	var avatar string
	if v, ok := fields["profileAvatar"]; ok {
		// Non-string avatars fall back to the default glyph.
		_ = json.Unmarshal(v, &avatar)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := map[string]any{
		keyHistory:  history,
		keyProfiles: profiles,
		keyAvatar:   normalizeAvatar(avatar),
	}
	if v, ok := fields["preferences"]; ok {
		for key, value := range s.importPreferences(v) {
			values[key] = value
		}
	}
	return s.writeLocked(values)
}

func hasAny(fields map[string]json.RawMessage, names []string) bool {
	for _, name := range names {
		if _, ok := fields[name]; ok {
			return true
		}
	}
	return false
}

// backupList decodes one of the backup collections. A missing or null list is
// empty; a value of the wrong shape rejects the backup.
func backupList[T any](fields map[string]json.RawMessage, name string, id func(T) int, limit int) ([]T, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return []T{}, nil
	}
	list, err := decodeList(v, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackupInvalid, name, err)
	}

	seen := make(map[int]struct{}, len(list))
	out := make([]T, 0, min(len(list), limit))
	for _, entry := range list {
		if len(out) >= limit {
			break
		}
		if _, dup := seen[id(entry)]; dup {
			continue
		}
		seen[id(entry)] = struct{}{}
		out = append(out, entry)
	}
	return out, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// importPreferences resolves each preference from the backup individually,
// keeping the current effective value for anything missing or invalid. The
// grid tile sizes fall back to the imported default tile size when that one
// is valid.
func (s *Service) importPreferences(raw json.RawMessage) map[string]any {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		s.log.Warn().Msg("backup preferences are not an object, keeping current preferences")
		return nil
	}
	current := s.Preferences()

	theme := importEnum(fields, "themeMode", models.ParseThemeMode, current.ThemeMode)
	tile, tileOK := lookupEnum(fields, "tileSize", models.ParseTileSize)
	if !tileOK {
		tile = current.TileSize
	}
	gridFallback := func(effective *models.TileSize) models.TileSize {
		if tileOK {
			return tile
		}
		return *effective
	}
	discover, ok := lookupEnum(fields, "discoverTileSize", models.ParseTileSize)
	if !ok {
		discover = gridFallback(current.DiscoverTileSize)
	}
	library, ok := lookupEnum(fields, "libraryTileSize", models.ParseTileSize)
	if !ok {
		library = gridFallback(current.LibraryTileSize)
	}

	return map[string]any{
		keyThemeMode:    string(theme),
		keyHideLocal:    strconv.FormatBool(importBool(fields, "hideRussianContent", current.HideLocalContent)),
		keyTileSize:     string(tile),
		keyDiscoverTile: string(discover),
		keyLibraryTile:  string(library),
		keyFPSCounter:   strconv.FormatBool(importBool(fields, "showFpsCounter", current.ShowFPSCounter)),
	}
}

func lookupEnum[T any](fields map[string]json.RawMessage, name string, parse func(string) (T, bool)) (T, bool) {
	var zero T
	v, ok := fields[name]
	if !ok {
		return zero, false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return zero, false
	}
	return parse(s)
}

func importEnum[T any](fields map[string]json.RawMessage, name string, parse func(string) (T, bool), fallback T) T {
	if v, ok := lookupEnum(fields, name, parse); ok {
		return v
	}
	return fallback
}

func importBool(fields map[string]json.RawMessage, name string, fallback bool) bool {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return fallback
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return fallback
	}
	return b
}
