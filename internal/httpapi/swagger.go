//go:build swagger

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger serves the Swagger UI at /swagger/index.html, pointed at a
// doc.json generated by `swag init` (see docs.go's annotations) and served
// from ./swagger/doc.json relative to the process's working directory. Built only with -tags=swagger since pulling in the
// generated docs package is a deployment-time choice, not a default one.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Handle("/swagger/doc.json", http.FileServer(http.Dir(".")))
}
