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
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
)

// New returns a taskendpoint.Set that load balances over the passing
// instances registered in Consul under config.ServiceName.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, config.ServiceName, tags, passingOnly)
	)
	return NewFromInstancer(instancer, logger, retryMax, retryTimeout)
}

func NewFromInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	balanced := func(pick func(taskendpoint.Set) endpoint.Endpoint) endpoint.Endpoint {
		factory := factoryFor(pick, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.CreateTaskEndpoint }),
		TasksEndpoint:      balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TasksEndpoint }),
		TaskEndpoint:       balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TaskEndpoint }),
		UpdateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.UpdateTaskEndpoint }),
		ToggleTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.ToggleTaskEndpoint }),
		DeleteTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.DeleteTaskEndpoint }),
	}
}

func factoryFor(pick func(taskendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		set, err := tasktransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(set), nil, nil
	}
}
