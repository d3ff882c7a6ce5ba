package api

import (
	"net"
	"net/http"
	"net/http/pprof"

	"kinoshka/handlers"

	"github.com/gorilla/mux"
)

// localhostOnlyMiddleware restricts access to localhost requests only
func localhostOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			http.Error(w, "Debug endpoints only accessible from localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Library     *handlers.LibraryHandler
	Films       *handlers.FilmsHandler
	Metadata    *handlers.MetadataHandler
	Preferences *handlers.PreferencesHandler
	Backup      *handlers.BackupHandler
	Home        *handlers.HomeHandler
	Posters     *handlers.PosterHandler
	Tasks       *handlers.ScheduledTasksHandler
}

// Register mounts API endpoints onto the provided router.
func Register(r *mux.Router, h Handlers) {
	api := r.PathPrefix("/api").Subrouter()

	// Library and history
	api.HandleFunc("/library", h.Library.List).Methods(http.MethodGet)
	api.HandleFunc("/library", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/history", h.Library.ClearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/history", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/history/{id}", h.Library.RemoveHistory).Methods(http.MethodDelete)
	api.HandleFunc("/history/{id}", handleOptions).Methods(http.MethodOptions)

	// Titles
	api.HandleFunc("/films/{id}", h.Films.Details).Methods(http.MethodGet)
	api.HandleFunc("/films/{id}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/films/{id}/watch", h.Films.Watch).Methods(http.MethodPost)
	api.HandleFunc("/films/{id}/watch", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/films/{id}/profile", h.Films.PutProfile).Methods(http.MethodPut)
	api.HandleFunc("/films/{id}/profile", handleOptions).Methods(http.MethodOptions)

	// Catalog
	api.HandleFunc("/catalog", h.Metadata.Catalog).Methods(http.MethodGet)
	api.HandleFunc("/catalog", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/search", h.Metadata.Search).Methods(http.MethodGet)
	api.HandleFunc("/search", handleOptions).Methods(http.MethodOptions)

	// Preferences
	api.HandleFunc("/preferences", h.Preferences.GetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", h.Preferences.PutPreferences).Methods(http.MethodPut)
	api.HandleFunc("/preferences", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/avatar", h.Preferences.GetAvatar).Methods(http.MethodGet)
	api.HandleFunc("/avatar", h.Preferences.PutAvatar).Methods(http.MethodPut)
	api.HandleFunc("/avatar", handleOptions).Methods(http.MethodOptions)

	// Backup
	api.HandleFunc("/backup", h.Backup.Export).Methods(http.MethodGet)
	api.HandleFunc("/backup", h.Backup.Import).Methods(http.MethodPost)
	api.HandleFunc("/backup", handleOptions).Methods(http.MethodOptions)

	// Screen state
	api.HandleFunc("/home", h.Home.Get).Methods(http.MethodGet)
	api.HandleFunc("/home", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/home/actions", h.Home.Action).Methods(http.MethodPost)
	api.HandleFunc("/home/actions", handleOptions).Methods(http.MethodOptions)

	// Artwork
	api.HandleFunc("/poster", h.Posters.Proxy).Methods(http.MethodGet)
	api.HandleFunc("/poster", handleOptions).Methods(http.MethodOptions)

	// Cache maintenance (localhost only)
	cache := api.PathPrefix("/cache").Subrouter()
	cache.Use(localhostOnlyMiddleware)
	cache.HandleFunc("/clear", h.Metadata.ClearCache).Methods(http.MethodPost)
	cache.HandleFunc("/prune", h.Metadata.PruneCache).Methods(http.MethodPost)

	posterCache := api.PathPrefix("/poster/cache").Subrouter()
	posterCache.Use(localhostOnlyMiddleware)
	posterCache.HandleFunc("", h.Posters.CacheStats).Methods(http.MethodGet)
	posterCache.HandleFunc("", h.Posters.Purge).Methods(http.MethodDelete)

	tasks := api.PathPrefix("/tasks").Subrouter()
	tasks.Use(localhostOnlyMiddleware)
	tasks.HandleFunc("", h.Tasks.ListTasks).Methods(http.MethodGet)
	tasks.HandleFunc("/{taskID}/run", h.Tasks.RunTask).Methods(http.MethodPost)

	// Profiling (localhost only)
	pprofRouter := api.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.Use(localhostOnlyMiddleware)
	pprofRouter.HandleFunc("/", pprof.Index)
	pprofRouter.HandleFunc("/cmdline", pprof.Cmdline)
	pprofRouter.HandleFunc("/profile", pprof.Profile)
	pprofRouter.HandleFunc("/symbol", pprof.Symbol)
	pprofRouter.HandleFunc("/trace", pprof.Trace)
	pprofRouter.HandleFunc("/goroutine", pprof.Handler("goroutine").ServeHTTP)
	pprofRouter.HandleFunc("/heap", pprof.Handler("heap").ServeHTTP)
}
