package metadata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/text/cases"

	"kinoshka/internal/logging"
	"kinoshka/models"
)

// Service fronts the catalog client with one read-through cache per endpoint.
type Service struct {
	client *Client
	log    zerolog.Logger

	popular   *TTLCache[string, []models.FilmItem]
	search    *TTLCache[string, []models.FilmItem]
	details   *TTLCache[int, models.FilmDetails]
	seasons   *TTLCache[int, []models.Season]
	similars  *TTLCache[int, []models.FilmLink]
	relations *TTLCache[int, []models.FilmLink]
	images    *TTLCache[string, []models.FilmImage]
}

// NewService creates a caching catalog service. A non-positive ttl uses DefaultCacheTTL.
func NewService(client *Client, ttl time.Duration, now func() time.Time) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		client:    client,
		log:       logging.Component("metadata"),
		popular:   NewTTLCache[string, []models.FilmItem](ttl, now),
		search:    NewTTLCache[string, []models.FilmItem](ttl, now),
		details:   NewTTLCache[int, models.FilmDetails](ttl, now),
		seasons:   NewTTLCache[int, []models.Season](ttl, now),
		similars:  NewTTLCache[int, []models.FilmLink](ttl, now),
		relations: NewTTLCache[int, []models.FilmLink](ttl, now),
		images:    NewTTLCache[string, []models.FilmImage](ttl, now),
	}
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// SearchKey normalizes a query into its cache key.
func SearchKey(query string, page int) string {
	return cacheKey(cases.Fold().String(strings.TrimSpace(query)), strconv.Itoa(page))
}

// Popular returns one page of the category's collection.
func (s *Service) Popular(ctx context.Context, category models.DiscoverCategory, page int) ([]models.FilmItem, error) {
	page = pageOrFirst(page)
	collection := category.CollectionType()
	return s.popular.GetOrLoad(ctx, cacheKey(collection, strconv.Itoa(page)), func(ctx context.Context) ([]models.FilmItem, error) {
		resp, err := s.client.Popular(ctx, collection, page)
		return nonNil(resp.Items), err
	})
}

// Search returns one page of keyword results.
func (s *Service) Search(ctx context.Context, query string, page int) ([]models.FilmItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	page = pageOrFirst(page)
	return s.search.GetOrLoad(ctx, SearchKey(query, page), func(ctx context.Context) ([]models.FilmItem, error) {
		resp, err := s.client.Search(ctx, query, page)
		return nonNil(resp.Items), err
	})
}

func (s *Service) Details(ctx context.Context, id int) (models.FilmDetails, error) {
	if id <= 0 {
		return models.FilmDetails{}, ErrInvalidID
	}
	return s.details.GetOrLoad(ctx, id, func(ctx context.Context) (models.FilmDetails, error) {
		return s.client.Details(ctx, id)
	})
}

func (s *Service) Seasons(ctx context.Context, id int) ([]models.Season, error) {
	return s.seasons.GetOrLoad(ctx, id, func(ctx context.Context) ([]models.Season, error) {
		resp, err := s.client.Seasons(ctx, id)
		return nonNil(resp.Items), err
	})
}

func (s *Service) Similars(ctx context.Context, id int) ([]models.FilmLink, error) {
	return s.similars.GetOrLoad(ctx, id, func(ctx context.Context) ([]models.FilmLink, error) {
		resp, err := s.client.Similars(ctx, id)
		return nonNil(resp.Items), err
	})
}

func (s *Service) Relations(ctx context.Context, id int) ([]models.FilmLink, error) {
	return s.relations.GetOrLoad(ctx, id, func(ctx context.Context) ([]models.FilmLink, error) {
		resp, err := s.client.Relations(ctx, id)
		return nonNil(resp.Items), err
	})
}

func (s *Service) Images(ctx context.Context, id, page int) ([]models.FilmImage, error) {
	page = pageOrFirst(page)
	return s.images.GetOrLoad(ctx, cacheKey(strconv.Itoa(id), strconv.Itoa(page)), func(ctx context.Context) ([]models.FilmImage, error) {
		resp, err := s.client.Images(ctx, id, page)
		return nonNil(resp.Items), err
	})
}

// DetailBundle loads a title and, concurrently, its seasons (serials only),
// similar titles, related titles and the first page of stills. Only a
// details failure is returned; a failed section is left empty.
func (s *Service) DetailBundle(ctx context.Context, id int) (models.DetailBundle, error) {
	details, err := s.Details(ctx, id)
	if err != nil {
		return models.DetailBundle{}, err
	}

	bundle := models.DetailBundle{
		Details:   details,
		Seasons:   []models.Season{},
		Similars:  []models.FilmLink{},
		Relations: []models.FilmLink{},
		Images:    []models.FilmImage{},
	}

	var wg conc.WaitGroup
	if details.IsSerial() {
		wg.Go(func() {
			bundle.Seasons = section(s, "seasons", id, func() ([]models.Season, error) { return s.Seasons(ctx, id) })
		})
	}
	wg.Go(func() {
		bundle.Similars = cleanLinks(section(s, "similars", id, func() ([]models.FilmLink, error) { return s.Similars(ctx, id) }))
	})
	wg.Go(func() {
		bundle.Relations = cleanLinks(section(s, "relations", id, func() ([]models.FilmLink, error) { return s.Relations(ctx, id) }))
	})
	wg.Go(func() {
		bundle.Images = cleanImages(section(s, "images", id, func() ([]models.FilmImage, error) { return s.Images(ctx, id, 1) }))
	})
	wg.Wait()

	return bundle, nil
}

// ClearCache drops every cached response.
func (s *Service) ClearCache() {
	s.popular.Clear()
	s.search.Clear()
	s.details.Clear()
	s.seasons.Clear()
	s.similars.Clear()
	s.relations.Clear()
	s.images.Clear()
}

// PruneCache removes expired entries from every cache.
func (s *Service) PruneCache() int {
	return s.popular.Prune() + s.search.Prune() + s.details.Prune() + s.seasons.Prune() +
		s.similars.Prune() + s.relations.Prune() + s.images.Prune()
}

func section[T any](s *Service, name string, id int, load func() ([]T, error)) []T {
	items, err := load()
	if err != nil {
		s.log.Warn().Err(err).Int("id", id).Str("section", name).Msg("detail section unavailable")
		return []T{}
	}
	return nonNil(items)
}

func cleanLinks(links []models.FilmLink) []models.FilmLink {
	seen := make(map[int]struct{}, len(links))
	out := make([]models.FilmLink, 0, len(links))
	for _, l := range links {
		id := l.ID()
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, l)
	}
	return out
}

func cleanImages(images []models.FilmImage) []models.FilmImage {
	out := make([]models.FilmImage, 0, len(images))
	for _, img := range images {
		if notBlank(img.PreviewURL) || notBlank(img.ImageURL) {
			out = append(out, img)
		}
	}
	return out
}

func notBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
