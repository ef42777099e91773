package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consul "github.com/hashicorp/consul/api"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/config"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, usergorm.Migrate(db))

	tk, err := authservice.NewTokenizer([]byte("test-secret"), "HS256")
	require.NoError(t, err)
	svc := authservice.New(usergorm.NewUserRepository(db), authservice.NewHasher(bcrypt.MinCost), tk, time.Hour, log.NewNopLogger())

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", authtransport.NewHTTPHandler(authendpoint.New(svc, log.NewNopLogger()), log.NewNopLogger())))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewFromInstancer(t *testing.T) {
	srv := newTestServer(t)

	// The first instance refuses connections, so every call needs a retry.
	instancer := sd.FixedInstancer{"127.0.0.1:1", srv.URL}
	client := NewFromInstancer(instancer, log.NewNopLogger(), 3, 5*time.Second)

	ctx := context.Background()
	created, err := client.Signup(ctx, "a@x.com", "Abc12345")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)

	session, err := client.Signin(ctx, "a@x.com", "Abc12345")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)

	_, err = client.Signin(ctx, "a@x.com", "Wrong1234")
	assert.Error(t, err)
}

// consulCatalog answers the first lookup with entry and holds every later
// blocking query until the test ends.
type consulCatalog struct {
	entry *consul.ServiceEntry
	done  chan struct{}

	mtx     sync.Mutex
	queried []string
}

func (c *consulCatalog) Register(*consul.AgentServiceRegistration) error   { return nil }
func (c *consulCatalog) Deregister(*consul.AgentServiceRegistration) error { return nil }

func (c *consulCatalog) Service(service, _ string, _ bool, opts *consul.QueryOptions) ([]*consul.ServiceEntry, *consul.QueryMeta, error) {
	c.mtx.Lock()
	c.queried = append(c.queried, service)
	c.mtx.Unlock()

	if opts != nil && opts.WaitIndex > 0 {
		<-c.done
		return nil, nil, errors.New("catalog closed")
	}
	if service != config.ServiceName {
		return nil, &consul.QueryMeta{LastIndex: 1}, nil
	}
	return []*consul.ServiceEntry{c.entry}, &consul.QueryMeta{LastIndex: 1}, nil
}

func (c *consulCatalog) services() []string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]string(nil), c.queried...)
}

func TestNewDiscoversRegisteredService(t *testing.T) {
	srv := newTestServer(t)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	catalog := &consulCatalog{
		entry: &consul.ServiceEntry{
			Node:    &consul.Node{Address: host},
			Service: &consul.AgentService{Service: config.ServiceName, Address: host, Port: p},
		},
		done: make(chan struct{}),
	}
	t.Cleanup(func() { close(catalog.done) })

	client := New(catalog, log.NewNopLogger(), 1, 5*time.Second)

	// The endpointer picks up the catalog asynchronously.
	require.Eventually(t, func() bool {
		_, err := client.Signup(context.Background(), "a@x.com", "Abc12345")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NotEmpty(t, catalog.services())
	for _, name := range catalog.services() {
		assert.Equal(t, config.ServiceName, name)
	}
}
