package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/media"
)

// AssetServer serves stored files under subDir of the media store. Stored
// paths are returned to clients relative to the store root, so a file saved
// as "captures/plates/2026-05-04/x.jpg" is served at
// "/api/captures/plates/2026-05-04/x.jpg" by:
//
//	r.Get("/api/captures/*", AssetServer(store, "captures", log))
func AssetServer(store media.Store, subDir string, log *logger.Logger) http.HandlerFunc {
	routePrefix := "/api/" + subDir + "/"

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" || relativePath == r.URL.Path || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, "invalid_path", "Invalid asset path")
			return
		}

		file, info, err := store.Get(path.Join(subDir, relativePath))
		if err != nil {
			if errors.Is(err, media.ErrAssetNotFound) {
				WriteAPIError(w, http.StatusNotFound, "not_found", "Asset not found")
				return
			}
			log.Warn("failed to open asset", "path", relativePath, "error", err)
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		defer file.Close()

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(cacheDuration.Seconds())))
		if rs, ok := file.(io.ReadSeeker); ok {
			http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
			return
		}
		_, _ = io.Copy(w, file)
	}
}
