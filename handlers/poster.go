package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"kinoshka/internal/logging"
)

const (
	posterMaxWidth       = 2000
	posterDefaultQuality = 80
	posterCacheControl   = "public, max-age=2592000"
)

// DefaultPosterHosts are the hosts the catalog serves artwork from.
var DefaultPosterHosts = []string{
	"kinopoiskapiunofficial.tech",
	"avatars.mds.yandex.net",
	"st.kp.yandex.net",
	"image.openmoviedb.com",
}

var errPosterUpstream = errors.New("poster source error")

// PosterHandler proxies catalog artwork, downscales it on request and keeps
// the JPEG result on disk.
type PosterHandler struct {
	fs           afero.Fs
	dir          string
	httpc        *http.Client
	allowedHosts map[string]struct{}
	group        singleflight.Group
}

func NewPosterHandler(fs afero.Fs, cacheDir string, httpc *http.Client, hosts ...string) *PosterHandler {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if len(hosts) == 0 {
		hosts = DefaultPosterHosts
	}
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowed[strings.ToLower(h)] = struct{}{}
	}
	if err := fs.MkdirAll(cacheDir, 0o755); err != nil {
		log := logging.Component("posters")
		log.Warn().Err(err).Str("dir", cacheDir).Msg("could not create poster cache dir")
	}
	return &PosterHandler{fs: fs, dir: cacheDir, httpc: httpc, allowedHosts: allowed}
}

// Proxy serves GET /api/poster?url=...&w=...&q=...
// w is the target width (0 keeps the original), q the JPEG quality.
func (h *PosterHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("url"))
	if source == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !h.allowed(source) {
		writeError(w, http.StatusForbidden, "URL not allowed")
		return
	}

	width := 0
	if v := r.URL.Query().Get("w"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= posterMaxWidth {
			width = n
		}
	}
	quality := posterDefaultQuality
	if v := r.URL.Query().Get("q"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			quality = n
		}
	}

	cachePath := path.Join(h.dir, posterCacheKey(source, width, quality)+".jpg")
	if data, err := afero.ReadFile(h.fs, cachePath); err == nil {
		writePoster(w, data, "HIT")
		return
	}

	v, err, _ := h.group.Do(cachePath, func() (any, error) {
		return h.render(r, source, width, quality, cachePath)
	})
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Warn().Err(err).Str("url", source).Msg("poster proxy failed")
		if errors.Is(err, errPosterUpstream) {
			writeError(w, http.StatusBadGateway, "Image source error")
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to load image")
		return
	}
	writePoster(w, v.([]byte), "MISS")
}

func (h *PosterHandler) allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	_, ok := h.allowedHosts[strings.ToLower(u.Hostname())]
	return ok
}

func (h *PosterHandler) render(r *http.Request, source string, width, quality int, cachePath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch poster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errPosterUpstream, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode poster: %w", err)
	}

	if bounds := img.Bounds(); width > 0 && width < bounds.Dx() {
		height := int(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx()))
		dst := image.NewRGBA(image.Rect(0, 0, width, max(height, 1)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	data := buf.Bytes()

	log := logging.Ctx(r.Context())
	tmp := cachePath + ".tmp"
	if err := afero.WriteFile(h.fs, tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Msg("poster cache write failed")
		return data, nil
	}
	if err := h.fs.Rename(tmp, cachePath); err != nil {
		_ = h.fs.Remove(tmp)
		log.Warn().Err(err).Msg("poster cache rename failed")
	}
	return data, nil
}

func writePoster(w http.ResponseWriter, data []byte, cache string) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", posterCacheControl)
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func posterCacheKey(source string, width, quality int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", source, width, quality)))
	return hex.EncodeToString(sum[:16])
}

// ClearCache removes every cached poster and reports how many were removed.
func (h *PosterHandler) ClearCache() (int, error) {
	entries, err := afero.ReadDir(h.fs, h.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		if err := h.fs.Remove(path.Join(h.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Stats reports the number and total size of cached posters.
func (h *PosterHandler) Stats() (count int, sizeBytes int64) {
	entries, err := afero.ReadDir(h.fs, h.dir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			count++
			sizeBytes += entry.Size()
		}
	}
	return count, sizeBytes
}

// CacheStats serves GET /api/poster/cache.
func (h *PosterHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	count, size := h.Stats()
	writeJSON(w, http.StatusOK, map[string]any{"count": count, "sizeBytes": size})
}

// Purge serves DELETE /api/poster/cache.
func (h *PosterHandler) Purge(w http.ResponseWriter, r *http.Request) {
	removed, err := h.ClearCache()
	if err != nil {
		logFailure(r, err, http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to clear poster cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
