package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"kinoshka/api"
	"kinoshka/handlers"
	"kinoshka/internal/kvstore"
	"kinoshka/models"
	"kinoshka/services/browse"
	"kinoshka/services/metadata"
	"kinoshka/services/scheduler"
	"kinoshka/services/userstate"
	"kinoshka/utils"
)

type fakeCatalog struct {
	popular  map[models.DiscoverCategory][]models.FilmItem
	search   []models.FilmItem
	details  map[int]models.FilmDetails
	err      error
	cleared  int
	pruned   int
	lastPage int
}

func (f *fakeCatalog) Popular(ctx context.Context, category models.DiscoverCategory, page int) ([]models.FilmItem, error) {
	f.lastPage = page
	if f.err != nil {
		return nil, f.err
	}
	if page > 1 {
		return []models.FilmItem{}, nil
	}
	return f.popular[category], nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string, page int) ([]models.FilmItem, error) {
	f.lastPage = page
	if f.err != nil {
		return nil, f.err
	}
	if page > 1 {
		return []models.FilmItem{}, nil
	}
	return f.search, nil
}

func (f *fakeCatalog) Details(ctx context.Context, id int) (models.FilmDetails, error) {
	if f.err != nil {
		return models.FilmDetails{}, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return models.FilmDetails{}, &metadata.HTTPError{StatusCode: http.StatusNotFound}
	}
	return d, nil
}

func (f *fakeCatalog) DetailBundle(ctx context.Context, id int) (models.DetailBundle, error) {
	d, err := f.Details(ctx, id)
	if err != nil {
		return models.DetailBundle{}, err
	}
	return models.DetailBundle{
		Details:   d,
		Seasons:   []models.Season{},
		Similars:  []models.FilmLink{},
		Relations: []models.FilmLink{},
		Images:    []models.FilmImage{},
	}, nil
}

func (f *fakeCatalog) ClearCache()     { f.cleared++ }
func (f *fakeCatalog) PruneCache() int { f.pruned++; return 3 }

func item(id int, title, country string) models.FilmItem {
	return models.FilmItem{
		KinopoiskID: id,
		NameRu:      models.StringPtr(title),
		Year:        models.IntPtr(2000 + id%20),
		Countries:   []models.NameOnly{{Country: models.StringPtr(country)}},
	}
}

func series(id int, title string) models.FilmDetails {
	return models.FilmDetails{
		KinopoiskID: id,
		NameRu:      models.StringPtr(title),
		Type:        models.StringPtr(models.FilmTypeTVSeries),
		Year:        models.IntPtr(2011),
		Countries:   []models.NameOnly{{Country: models.StringPtr("США")}},
	}
}

type testServer struct {
	router  *mux.Router
	catalog *fakeCatalog
	state   *userstate.Service
	tasks   *scheduler.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "/state")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	state, err := userstate.NewService(store, userstate.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	if err != nil {
		t.Fatalf("userstate: %v", err)
	}

	catalog := &fakeCatalog{
		popular: map[models.DiscoverCategory][]models.FilmItem{
			models.DiscoverPopular: {item(1, "Интерстеллар", "США"), item(2, "Брат", "Россия")},
			models.DiscoverTop250:  {item(3, "Побег из Шоушенка", "США")},
		},
		search: []models.FilmItem{item(4, "Матрица", "США")},
		details: map[int]models.FilmDetails{
			10: series(10, "Игра престолов"),
			11: {KinopoiskID: 11, NameOriginal: models.StringPtr("Heat"), Type: models.StringPtr(models.FilmTypeFilm)},
		},
	}

	tasks := scheduler.NewService()
	err = tasks.Register(scheduler.Task{
		ID:       "catalog-cache-prune",
		Interval: time.Hour,
		Run: func(context.Context) (int, error) {
			return catalog.PruneCache(), nil
		},
	})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	r := utils.NewRouter(handlers.RequestLogger)
	api.Register(r, api.Handlers{
		Library:     handlers.NewLibraryHandler(state, time.UTC),
		Films:       handlers.NewFilmsHandler(catalog, state),
		Metadata:    handlers.NewMetadataHandler(catalog, state),
		Preferences: handlers.NewPreferencesHandler(state),
		Backup:      handlers.NewBackupHandler(state),
		Home:        handlers.NewHomeHandler(browse.NewController(catalog, state), catalog),
		Posters:     handlers.NewPosterHandler(afero.NewMemMapFs(), "/posters", nil),
		Tasks:       handlers.NewScheduledTasksHandler(tasks),
	})
	return &testServer{router: r, catalog: catalog, state: state, tasks: tasks}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Host = "localhost"
	return serve(s, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func newRemoteRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Host = "kinoshka.example:7878"
	return req
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
