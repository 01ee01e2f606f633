package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// mountStatic serves files under filepath.Join(appDir, subdir) at prefix,
// mirroring the original's RequestApp/RequestAdmin handlers (dist/ and
// distadmin/ relative to the binary).
func mountStatic(r chi.Router, prefix, appDir, subdir string) {
	root := filepath.Join(appDir, subdir)
	fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	r.Get(prefix, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, prefix+"/", http.StatusMovedPermanently)
	})
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})
}
