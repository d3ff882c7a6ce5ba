package userstate

import (
	"fmt"
	"strings"

	"kinoshka/models"
)

// History returns the watch history, most recent first.
func (s *Service) History() []models.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readList(s, keyHistory, historyID)
}

// Profiles returns all profiles, most recently updated first.
func (s *Service) Profiles() []models.UserFilmProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readList(s, keyProfiles, profileID)
}

// Profile returns the profile for id, if any.
func (s *Service) Profile(id int) (models.UserFilmProfile, bool) {
	for _, p := range s.Profiles() {
		if p.KinopoiskID == id {
			return p, true
		}
	}
	return models.UserFilmProfile{}, false
}

// UpsertHistory replaces any record with the same id and puts record first.
func (s *Service) UpsertHistory(record models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := upsert(readList(s, keyHistory, historyID), record, historyID, HistoryLimit)
	return s.writeLocked(map[string]any{keyHistory: next})
}

// TouchHistory moves an existing record to the head with a fresh view time.
func (s *Service) TouchHistory(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := readList(s, keyHistory, historyID)
	for i, r := range current {
		if r.KinopoiskID != id {
			continue
		}
		r.ViewedAt = s.nowMillis()
		next := make([]models.HistoryRecord, 0, len(current))
		next = append(next, r)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		return s.writeLocked(map[string]any{keyHistory: next})
	}
	return nil
}

// RemoveHistory deletes the record for id. Absent ids are ignored.
func (s *Service) RemoveHistory(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := readList(s, keyHistory, historyID)
	next := make([]models.HistoryRecord, 0, len(current))
	for _, r := range current {
		if r.KinopoiskID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(current) {
		return nil
	}
	return s.writeLocked(map[string]any{keyHistory: next})
}

// ClearHistory deletes the whole history.
func (s *Service) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(keyHistory)
}

// UpsertProfile replaces any profile with the same id and puts profile first.
func (s *Service) UpsertProfile(profile models.UserFilmProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := upsert(readList(s, keyProfiles, profileID), profile, profileID, ProfileLimit)
	return s.writeLocked(map[string]any{keyProfiles: next})
}

// RecordView adds a catalog entry to the history.
func (s *Service) RecordView(item models.FilmItem) (models.HistoryRecord, error) {
	isLocal := item.IsLocal()
	record := models.HistoryRecord{
		KinopoiskID: item.KinopoiskID,
		Title:       item.DisplayTitle(),
		Subtitle:    item.Subtitle(),
		PosterURL:   item.PosterURLPreview,
		RatingText:  item.RatingText(),
		IsLocal:     &isLocal,
		ViewedAt:    s.nowMillis(),
	}
	return record, s.UpsertHistory(record)
}

// RecordWatch adds the title to the history and refreshes the display snapshot
// of its profile, keeping the user's classification. Both writes land together.
func (s *Service) RecordWatch(details models.FilmDetails) (models.UserFilmProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	isLocal := details.IsLocal()
	record := models.HistoryRecord{
		KinopoiskID: details.KinopoiskID,
		Title:       details.DisplayTitle(),
		Subtitle:    details.Subtitle(),
		PosterURL:   details.Poster(),
		RatingText:  details.RatingText(),
		IsLocal:     &isLocal,
		ViewedAt:    now,
	}

	profiles := readList(s, keyProfiles, profileID)
	profile := snapshot(details, now)
	for _, existing := range profiles {
		if existing.KinopoiskID == details.KinopoiskID {
			profile.Status = existing.Status
			profile.UserRating = existing.UserRating
			profile.Note = existing.Note
			profile.WatchedSeasons = existing.WatchedSeasons
			profile.WatchedEpisodes = existing.WatchedEpisodes
			profile.TotalEpisodesInSeason = existing.TotalEpisodesInSeason
			profile.TotalSeasons = existing.TotalSeasons
			profile.TotalEpisodes = existing.TotalEpisodes
			break
		}
	}

	err := s.writeLocked(map[string]any{
		keyHistory:  upsert(readList(s, keyHistory, historyID), record, historyID, HistoryLimit),
		keyProfiles: upsert(profiles, profile, profileID, ProfileLimit),
	})
	if err != nil {
		return models.UserFilmProfile{}, err
	}
	return profile, nil
}

// SaveProfile stores the user's edit of a title as a full profile replace.
func (s *Service) SaveProfile(details models.FilmDetails, edit models.ProfileEdit) (models.UserFilmProfile, error) {
	profile := snapshot(details, s.nowMillis())
	profile.Status = edit.Status
	if edit.UserRating != nil {
		profile.UserRating = clampPtr(edit.UserRating, 1, 10)
	}
	if note := strings.TrimSpace(edit.Note); note != "" {
		profile.Note = &note
	}
	profile.WatchedSeasons = atLeastZero(edit.WatchedSeasons)
	profile.WatchedEpisodes = atLeastZero(edit.WatchedEpisodes)
	profile.TotalEpisodesInSeason = atLeastZero(edit.TotalEpisodesInSeason)
	profile.TotalSeasons = atLeastZero(edit.TotalSeasons)
	profile.TotalEpisodes = atLeastZero(edit.TotalEpisodes)

	if err := s.UpsertProfile(profile); err != nil {
		return models.UserFilmProfile{}, err
	}
	return profile, nil
}

func snapshot(details models.FilmDetails, now int64) models.UserFilmProfile {
	isLocal := details.IsLocal()
	return models.UserFilmProfile{
		KinopoiskID: details.KinopoiskID,
		Title:       details.DisplayTitle(),
		Subtitle:    details.Subtitle(),
		PosterURL:   details.Poster(),
		RatingText:  details.RatingText(),
		Type:        details.Type,
		IsLocal:     &isLocal,
		UpdatedAt:   now,
	}
}

func atLeastZero(v *int) *int {
	if v == nil {
		return nil
	}
	return clampPtr(v, 0, int(^uint(0)>>1))
}

func clampPtr(v *int, lo, hi int) *int {
	n := min(max(*v, lo), hi)
	return &n
}

// upsert drops entries sharing value's id, prepends value and truncates to limit.
func upsert[T any](current []T, value T, id func(T) int, limit int) []T {
	next := make([]T, 0, min(len(current)+1, limit))
	next = append(next, value)
	for _, v := range current {
		if len(next) >= limit {
			break
		}
		if id(v) != id(value) {
			next = append(next, v)
		}
	}
	return next
}

// writeLocked encodes each value and applies the whole batch atomically.
// Values are lists, strings or already encoded *string entries.
func (s *Service) writeLocked(values map[string]any) error {
	batch := make(map[string]*string, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case *string:
			batch[key] = v
		case string:
			batch[key] = strPtr(v)
		case []models.HistoryRecord:
			encoded, err := encodeList(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			batch[key] = encoded
		case []models.UserFilmProfile:
			encoded, err := encodeList(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			batch[key] = encoded
		default:
			return fmt.Errorf("encode %s: unsupported value %T", key, value)
		}
	}
	if err := s.store.Apply(batch); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
