package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/ipatlas/ipatlas/atlas"
)

// MakeServer wires the lookup service into an HTTP router. Everything
// interesting happens in the atlas package; this is only the JSON rim.
func MakeServer(service *atlas.Service) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(10 * time.Second))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.SetHeader("Content-Type", "application/json"))

	handlers := handlers{service}

	router.Get("/ip/{ip}", handlers.lookupIP)
	router.Get("/info", handlers.info)

	return router
}

func abort(w http.ResponseWriter, code int, message string) {
	msg, _ := json.Marshal(map[string]string{"error": message})
	http.Error(w, string(msg), code)
}
