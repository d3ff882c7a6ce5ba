package browse

import (
	"testing"

	"kinoshka/models"
)

func films(ids ...int) []models.FilmItem {
	out := make([]models.FilmItem, len(ids))
	for i, id := range ids {
		out[i] = models.FilmItem{KinopoiskID: id}
	}
	return out
}

func itemIDs(items []models.FilmItem) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.KinopoiskID
	}
	return out
}

func TestReducePaging(t *testing.T) {
	s := InitialState()
	s = Reduce(s, PageRequested{Page: 1})
	if !s.Loading || s.Page != 1 || !s.HasMore {
		t.Fatalf("first page request: %+v", s)
	}
	s = Reduce(s, PageLoaded{Page: 1, Items: films(1, 2, 3)})
	if s.Loading || len(s.Items) != 3 {
		t.Fatalf("first page loaded: %+v", s)
	}

	s = Reduce(s, PageRequested{Page: 2})
	if !s.LoadingMore || s.Loading {
		t.Fatalf("next page request: %+v", s)
	}
	s = Reduce(s, PageLoaded{Page: 2, Items: films(3, 4)})
	if got := itemIDs(s.Items); len(got) != 4 || got[3] != 4 {
		t.Fatalf("merge distinct: %v", got)
	}
	if s.Page != 2 || !s.HasMore || s.LoadingMore {
		t.Fatalf("after page 2: %+v", s)
	}

	s = Reduce(s, PageRequested{Page: 3})
	s = Reduce(s, PageLoaded{Page: 3, Items: nil})
	if s.Page != 2 {
		t.Fatalf("empty page must not advance, page = %d", s.Page)
	}
	if s.HasMore || s.CanLoadMore() {
		t.Fatalf("empty page ends pagination")
	}
}

func TestReduceFailureKeepsItems(t *testing.T) {
	s := Reduce(InitialState(), PageLoaded{Page: 1, Items: films(1)})
	s = Reduce(s, PageRequested{Page: 2})
	s = Reduce(s, PageFailed{Page: 2, Message: "Ошибка API (500)"})
	if s.LoadingMore || s.Error != "Ошибка API (500)" || len(s.Items) != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}

	s = Reduce(s, PageRequested{Page: 1})
	if s.Error != "" {
		t.Fatalf("new request should clear the error")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := Reduce(InitialState(), PageLoaded{Page: 1, Items: films(1, 2)})
	before := itemIDs(s.Items)
	_ = Reduce(s, PageLoaded{Page: 2, Items: films(3)})
	if got := itemIDs(s.Items); len(got) != len(before) {
		t.Fatalf("input state changed: %v", got)
	}
}

func TestReduceCategoryAndPreferences(t *testing.T) {
	s := InitialState()
	s = Reduce(s, QueryChanged{Query: "дюна"})
	s.IsSearch = true
	s = Reduce(s, CategorySelected{Category: models.DiscoverAwait})
	if s.IsSearch || s.Query != "" || s.Category != models.DiscoverAwait {
		t.Fatalf("category selection: %+v", s)
	}

	lib := models.TileLarge
	s = Reduce(s, PreferencesChanged{Preferences: models.UserPreferences{
		ThemeMode:        models.ThemeAmoled,
		HideLocalContent: true,
		TileSize:         models.TileCompact,
		LibraryTileSize:  &lib,
	}})
	if s.Theme != models.ThemeAmoled || !s.HideLocal {
		t.Fatalf("preferences: %+v", s)
	}
	if s.DiscoverTileSize != models.TileCompact || s.LibraryTileSize != models.TileLarge {
		t.Fatalf("tile sizes: %+v", s)
	}
}

func TestVisibleItemsHidesLocal(t *testing.T) {
	russia := "Россия"
	s := InitialState()
	s.Items = []models.FilmItem{
		{KinopoiskID: 1, Countries: []models.NameOnly{{Country: &russia}}},
		{KinopoiskID: 2},
	}
	if len(s.VisibleItems()) != 2 {
		t.Fatalf("nothing hidden by default")
	}
	s.HideLocal = true
	if got := itemIDs(s.VisibleItems()); len(got) != 1 || got[0] != 2 {
		t.Fatalf("visible = %v", got)
	}
}
