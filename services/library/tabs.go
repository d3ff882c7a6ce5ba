package library

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"kinoshka/models"
)

// Tab is a library screen section.
type Tab string

const (
	TabHistory    Tab = "HISTORY"
	TabWatching   Tab = "WATCHING"
	TabPlanned    Tab = "PLANNED"
	TabWatched    Tab = "WATCHED"
	TabRewatching Tab = "REWATCHING"
	TabOnHold     Tab = "ON_HOLD"
	TabDropped    Tab = "DROPPED"
)

var tabs = []Tab{TabHistory, TabWatching, TabPlanned, TabWatched, TabRewatching, TabOnHold, TabDropped}

// Tabs lists every tab in display order.
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// ParseTab resolves a tab name, case-insensitively.
func ParseTab(v string) (Tab, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, t := range tabs {
		if string(t) == v {
			return t, true
		}
	}
	return "", false
}

// Status returns the profile status a status tab selects. HISTORY has none.
func (t Tab) Status() models.UserFilmStatus {
	switch t {
	case TabWatching:
		return models.StatusWatching
	case TabPlanned:
		return models.StatusPlanned
	case TabWatched:
		return models.StatusCompleted
	case TabRewatching:
		return models.StatusRewatching
	case TabOnHold:
		return models.StatusOnHold
	case TabDropped:
		return models.StatusDropped
	default:
		return models.StatusNone
	}
}

// Title returns the tab caption.
func (t Tab) Title() string {
	if t == TabHistory {
		return "История"
	}
	return t.Status().Label()
}

// FilterByTab selects the items shown under tab. Status tabs keep the merged
// order; HISTORY keeps viewed items only, most recent view first.
func FilterByTab(items []models.LibraryItem, tab Tab) []models.LibraryItem {
	out := make([]models.LibraryItem, 0, len(items))
	if tab == TabHistory {
		for _, item := range items {
			if item.ViewedAt != nil {
				out = append(out, item)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].ViewedAt > *out[j].ViewedAt
		})
		return out
	}

	want := tab.Status()
	if want == models.StatusNone {
		return out
	}
	for _, item := range items {
		if item.Status == want {
			out = append(out, item)
		}
	}
	return out
}

// FilterByQuery keeps items whose title or note contains query, ignoring case.
func FilterByQuery(items []models.LibraryItem, query string) []models.LibraryItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	// Casers carry state and are not shared across calls.
	folder := cases.Fold()
	needle := folder.String(query)

	out := make([]models.LibraryItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(folder.String(item.Title), needle) ||
			(item.Note != nil && strings.Contains(folder.String(*item.Note), needle)) {
			out = append(out, item)
		}
	}
	return out
}

// HideLocal drops local-market titles when hide is set.
func HideLocal(items []models.LibraryItem, hide bool) []models.LibraryItem {
	if !hide {
		return items
	}
	out := make([]models.LibraryItem, 0, len(items))
	for _, item := range items {
		if !item.IsLocal {
			out = append(out, item)
		}
	}
	return out
}

// View applies the screen filters in display order: tab, locale, query.
func View(items []models.LibraryItem, tab Tab, hideLocal bool, query string) []models.LibraryItem {
	return FilterByQuery(HideLocal(FilterByTab(items, tab), hideLocal), query)
}

// StatusCounts returns the number of items per tab.
func StatusCounts(items []models.LibraryItem) map[Tab]int {
	counts := make(map[Tab]int, len(tabs))
	for _, t := range tabs {
		counts[t] = 0
	}
	for _, item := range items {
		if item.ViewedAt != nil {
			counts[TabHistory]++
		}
		for _, t := range tabs[1:] {
			if item.Status == t.Status() {
				counts[t]++
			}
		}
	}
	return counts
}

const viewedAtLayout = "02.01.06 15:04"

// ViewedAtLabel formats an epoch-millis view time in loc (UTC when nil).
func ViewedAtLabel(millis int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(millis).In(loc).Format(viewedAtLayout)
}
