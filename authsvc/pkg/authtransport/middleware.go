package authtransport

import (
	"context"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
)

// NewAuthenticater resolves the bearer token that kitjwt.HTTPToContext put
// in the context and stores the principal for the next endpoint.
func NewAuthenticater(svc authservice.Service) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			token, _ := ctx.Value(kitjwt.JWTTokenContextKey).(string)
			if token == "" {
				return nil, authsvc.ErrMissingCredentials
			}

			user, err := svc.Authenticate(ctx, token)
			if err != nil {
				return nil, err
			}

			return next(authsvc.WithPrincipal(ctx, user), request)
		}
	}
}

// OwnerScoped is implemented by requests addressed to one owner's resources.
type OwnerScoped interface {
	Owner() string
}

// NewOwnerGuard rejects requests whose owner differs from the principal.
// It must run after NewAuthenticater.
func NewOwnerGuard() endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			principal, ok := authsvc.PrincipalFromContext(ctx)
			if !ok {
				return nil, authsvc.ErrMissingCredentials
			}

			scoped, ok := request.(OwnerScoped)
			if !ok || scoped.Owner() != principal.ID {
				return nil, authsvc.ErrForbidden
			}

			return next(ctx, request)
		}
	}
}
