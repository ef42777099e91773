// Package healthsvc reports liveness and database reachability.
package healthsvc

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit/apierror"
)

const (
	ServiceName = "Todo API"
	Version     = "1.0.0"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Health struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
}

type Info struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type Service interface {
	Health(ctx context.Context) Health
	Info(ctx context.Context) Info
}

type basicService struct {
	db          Pinger
	environment string
	timeout     time.Duration
}

func NewService(db Pinger, environment string) Service {
	return basicService{db: db, environment: environment, timeout: 2 * time.Second}
}

// Health stays healthy when the database is unreachable; the database
// field says which.
func (s basicService) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", Environment: s.environment, Database: "connected"}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		h.Database = "disconnected"
	}
	return h
}

func (s basicService) Info(context.Context) Info {
	return Info{Service: ServiceName, Version: Version, Status: "healthy"}
}

func MakeHealthEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		return s.Health(ctx), nil
	}
}

func MakeInfoEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		return s.Info(ctx), nil
	}
}

// NewHTTPHandler serves GET /health and GET /.
func NewHTTPHandler(s Service, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(apierror.EncodeError),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	r := mux.NewRouter()

	r.Methods("GET").Path("/health").Handler(httptransport.NewServer(
		MakeHealthEndpoint(s),
		httptransport.NopRequestDecoder,
		httptransport.EncodeJSONResponse,
		options...,
	))
	r.Methods("GET").Path("/").Handler(httptransport.NewServer(
		MakeInfoEndpoint(s),
		httptransport.NopRequestDecoder,
		httptransport.EncodeJSONResponse,
		options...,
	))
	r.NotFoundHandler = apierror.NotFoundHandler()
	r.MethodNotAllowedHandler = apierror.MethodNotAllowedHandler()

	return r
}
