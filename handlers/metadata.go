package handlers

import (
	"context"
	"net/http"
	"strings"

	"kinoshka/internal/logging"
	"kinoshka/models"
	metadatapkg "kinoshka/services/metadata"
)

type metadataService interface {
	Popular(ctx context.Context, category models.DiscoverCategory, page int) ([]models.FilmItem, error)
	Search(ctx context.Context, query string, page int) ([]models.FilmItem, error)
	Details(ctx context.Context, id int) (models.FilmDetails, error)
	DetailBundle(ctx context.Context, id int) (models.DetailBundle, error)
	ClearCache()
	PruneCache() int
}

var _ metadataService = (*metadatapkg.Service)(nil)

// hideLocalProvider reports the hide-local-content preference.
type hideLocalProvider interface {
	HideLocalContent() bool
}

type MetadataHandler struct {
	Service metadataService
	Prefs   hideLocalProvider
}

func NewMetadataHandler(s metadataService, prefs hideLocalProvider) *MetadataHandler {
	return &MetadataHandler{Service: s, Prefs: prefs}
}

// filmCard is a catalog item with its display fields resolved.
type filmCard struct {
	models.FilmItem
	Title      string  `json:"title"`
	Subtitle   *string `json:"subtitle,omitempty"`
	RatingText *string `json:"ratingText,omitempty"`
	IsLocal    bool    `json:"isRussian"`
}

// PageResponse is one page of catalog or search results.
type PageResponse struct {
	Category *models.DiscoverCategory `json:"category,omitempty"`
	Title    string                   `json:"title,omitempty"`
	Query    string                   `json:"query,omitempty"`
	Page     int                      `json:"page"`
	Items    []filmCard               `json:"items"`
	Hidden   int                      `json:"hidden"` // local titles filtered out
}

func (h *MetadataHandler) cards(items []models.FilmItem) ([]filmCard, int) {
	hide := h.Prefs != nil && h.Prefs.HideLocalContent()
	out := make([]filmCard, 0, len(items))
	hidden := 0
	for _, item := range items {
		local := item.IsLocal()
		if hide && local {
			hidden++
			continue
		}
		out = append(out, filmCard{
			FilmItem:   item,
			Title:      item.DisplayTitle(),
			Subtitle:   item.Subtitle(),
			RatingText: item.RatingText(),
			IsLocal:    local,
		})
	}
	return out, hidden
}

// Catalog serves a page of a discover collection: ?category=POPULAR&page=1.
func (h *MetadataHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	category := models.DiscoverPopular
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		parsed, ok := models.ParseDiscoverCategory(strings.ToUpper(raw))
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		category = parsed
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.Service.Popular(r.Context(), category, page)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	cards, hidden := h.cards(items)
	writeJSON(w, http.StatusOK, PageResponse{
		Category: &category,
		Title:    category.Title(),
		Page:     page,
		Items:    cards,
		Hidden:   hidden,
	})
}

// Search serves a page of keyword results: ?q=matrix&page=1.
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.Service.Search(r.Context(), query, page)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	cards, hidden := h.cards(items)
	writeJSON(w, http.StatusOK, PageResponse{Query: query, Page: page, Items: cards, Hidden: hidden})
}

// ClearCache drops every cached catalog response.
func (h *MetadataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Service.ClearCache()
	l := logging.Ctx(r.Context())
	l.Info().Msg("catalog cache cleared by request")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Catalog cache cleared"})
}

// PruneCache removes expired catalog responses.
func (h *MetadataHandler) PruneCache(w http.ResponseWriter, r *http.Request) {
	removed := h.Service.PruneCache()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
