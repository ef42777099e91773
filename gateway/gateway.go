// Package gateway assembles the service handlers into the public router.
package gateway

import (
	stdlog "log"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit/apierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth   http.Handler
	Tasks  http.Handler
	Health http.Handler
}

// NewHTTPHandler mounts every route at the root and again under /api.
func NewHTTPHandler(h Handlers, corsOrigins []string, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.PathPrefix("/auth/").Handler(http.StripPrefix("/auth", h.Auth))
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	r.Methods("GET").Path("/health").Handler(h.Health)
	r.Methods("GET").Path("/").Handler(h.Health)
	r.PathPrefix("/{owner}/tasks").Handler(h.Tasks)
	r.NotFoundHandler = apierror.NotFoundHandler()
	r.MethodNotAllowedHandler = apierror.MethodNotAllowedHandler()

	root := mux.NewRouter()
	root.PathPrefix("/api/").Handler(http.StripPrefix("/api", r))
	root.PathPrefix("/").Handler(r)

	var handler http.Handler = root
	handler = handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdlog.New(log.NewStdlibAdapter(log.With(logger, "component", "recovery")), "", 0)),
	)(handler)

	return handler
}

