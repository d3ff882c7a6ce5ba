package library

import (
	"testing"
	"time"

	"kinoshka/models"
)

func sampleItems() []models.LibraryItem {
	v := func(n int64) *int64 { return &n }
	return []models.LibraryItem{
		{KinopoiskID: 1, Title: "Дюна", ViewedAt: v(10), Status: models.StatusWatching},
		{KinopoiskID: 2, Title: "Brat", ViewedAt: v(30), IsLocal: true, Status: models.StatusCompleted},
		{KinopoiskID: 3, Title: "Severance", ViewedAt: v(20), Note: models.StringPtr("ждать третий сезон")},
		{KinopoiskID: 4, Title: "Arcane", Status: models.StatusWatching},
		{KinopoiskID: 5, Title: "Planned one", Status: models.StatusPlanned},
	}
}

func ids(items []models.LibraryItem) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.KinopoiskID
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterByTab(t *testing.T) {
	items := sampleItems()
	cases := []struct {
		tab  Tab
		want []int
	}{
		{TabHistory, []int{2, 3, 1}},
		{TabWatching, []int{1, 4}},
		{TabWatched, []int{2}},
		{TabPlanned, []int{5}},
		{TabDropped, []int{}},
	}
	for _, tc := range cases {
		got := ids(FilterByTab(items, tc.tab))
		if !equalIDs(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.tab, got, tc.want)
		}
	}
}

func TestFilterByQueryMatchesTitleAndNote(t *testing.T) {
	items := sampleItems()
	if got := ids(FilterByQuery(items, "  дЮНА ")); !equalIDs(got, []int{1}) {
		t.Fatalf("title match: %v", got)
	}
	if got := ids(FilterByQuery(items, "ТРЕТИЙ")); !equalIDs(got, []int{3}) {
		t.Fatalf("note match: %v", got)
	}
	if got := FilterByQuery(items, " "); len(got) != len(items) {
		t.Fatalf("blank query should keep everything")
	}
}

func TestViewHidesLocal(t *testing.T) {
	got := ids(View(sampleItems(), TabHistory, true, ""))
	if !equalIDs(got, []int{3, 1}) {
		t.Fatalf("got %v", got)
	}
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts(sampleItems())
	if counts[TabHistory] != 3 || counts[TabWatching] != 2 || counts[TabDropped] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestParseTab(t *testing.T) {
	if tab, ok := ParseTab(" on_hold "); !ok || tab != TabOnHold {
		t.Fatalf("ParseTab = %q, %v", tab, ok)
	}
	if _, ok := ParseTab("CATALOG"); ok {
		t.Fatalf("unknown tab accepted")
	}
	if TabWatched.Title() != "Просмотрено" || TabHistory.Title() != "История" {
		t.Fatalf("unexpected titles")
	}
}

func TestViewedAtLabel(t *testing.T) {
	millis := time.Date(2024, 3, 9, 21, 5, 0, 0, time.UTC).UnixMilli()
	if got := ViewedAtLabel(millis, nil); got != "09.03.24 21:05" {
		t.Fatalf("label = %q", got)
	}
}
