package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/todokit/config"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
)

// New returns an authendpoint.Set that load balances over the passing
// instances registered in Consul under config.ServiceName.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) authendpoint.Set {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, config.ServiceName, tags, passingOnly)
	)
	return NewFromInstancer(instancer, logger, retryMax, retryTimeout)
}

func NewFromInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) authendpoint.Set {
	endpoints := authendpoint.Set{}
	{
		factory := factoryFor(func(s authendpoint.Set) endpoint.Endpoint { return s.SignupEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.SignupEndpoint = retry
	}
	{
		factory := factoryFor(func(s authendpoint.Set) endpoint.Endpoint { return s.SigninEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.SigninEndpoint = retry
	}

	return endpoints
}

func factoryFor(pick func(authendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		set, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(set), nil, nil
	}
}
