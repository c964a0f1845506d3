package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fedhost/internal/metrics"
)

// RemoteHandler serves a remote application's static files (its entry script
// under /assets/) to hosts on other origins.
func RemoteHandler(fsys fs.FS, logger *zap.Logger, m *metrics.Collector) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	files := http.FileServer(http.FS(fsys))

	r := mux.NewRouter()
	r.Use(observe(logger.Named("remote"), m), cors)
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, ".js") {
			// entry scripts are revalidated on every load
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, req)
	})).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	return r
}
