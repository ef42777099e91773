package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/config"
	"github.com/ichigozero/todokit/gateway"
	"github.com/ichigozero/todokit/healthsvc"
	taskgorm "github.com/ichigozero/todokit/tasksvc/db/gorm"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/joho/godotenv"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/twinj/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("todosvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			cfg.HTTPAddr,
			"HTTP listen address",
		)
		consulAddr = fs.String(
			"consul.addr",
			cfg.ConsulAddr,
			"Consul agent address; registration is skipped when empty",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		if cfg.IsProduction() {
			logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		} else {
			logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		}
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var db *libgorm.DB
	{
		level := gormlogger.Info
		if cfg.IsProduction() {
			level = gormlogger.Warn
		}
		gormConfig := &libgorm.Config{
			Logger: gormlogger.New(
				stdlog.New(log.NewStdlibAdapter(log.With(logger, "component", "gorm")), "", 0),
				gormlogger.Config{SlowThreshold: 200 * time.Millisecond, LogLevel: level},
			),
		}

		if cfg.DatabaseURL != "" {
			db, err = libgorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
		} else {
			db, err = libgorm.Open(sqlite.Open("todo.db?_foreign_keys=on"), gormConfig)
		}
		if err != nil {
			logger.Log("during", "Open", "err", err)
			os.Exit(1)
		}

		// Tasks reference users, so users are migrated first.
		if err := usergorm.Migrate(db); err != nil {
			logger.Log("during", "Migrate", "table", "users", "err", err)
			os.Exit(1)
		}
		if err := taskgorm.Migrate(db); err != nil {
			logger.Log("during", "Migrate", "table", "tasks", "err", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log("err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	fieldKeys := []string{"method"}

	var authService authservice.Service
	{
		tokenizer, err := authservice.NewTokenizer([]byte(cfg.AuthSecret), cfg.JWTAlgorithm)
		if err != nil {
			logger.Log("during", "NewTokenizer", "err", err)
			os.Exit(1)
		}

		authService = authservice.New(
			usergorm.NewUserRepository(db),
			authservice.NewHasher(cfg.BcryptCost),
			tokenizer,
			cfg.TokenTTL(),
			log.With(logger, "service", "authsvc"),
		)
		authService = authservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "authsvc",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "authsvc",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(authService)
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskgorm.NewTaskRepository(db), log.With(logger, "service", "tasksvc"))
		taskService = taskservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "tasksvc",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "tasksvc",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(taskService)
	}

	var httpHandler http.Handler
	{
		httpHandler = gateway.NewHTTPHandler(gateway.Handlers{
			Auth: authtransport.NewHTTPHandler(
				authendpoint.New(authService, logger),
				log.With(logger, "transport", "auth"),
			),
			Tasks: tasktransport.NewHTTPHandler(
				taskendpoint.New(taskService, logger),
				authService,
				log.With(logger, "transport", "tasks"),
			),
			Health: healthsvc.NewHTTPHandler(
				healthsvc.NewService(sqlDB, cfg.Environment),
				log.With(logger, "transport", "health"),
			),
		}, cfg.CORSOrigins, logger)
	}

	if *consulAddr != "" {
		registrar, err := newRegistrar(*consulAddr, *httpAddr, logger)
		if err != nil {
			logger.Log("during", "Register", "err", err)
			os.Exit(1)
		}
		registrar.Register()
		defer registrar.Deregister()
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr, "environment", cfg.Environment)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

// newRegistrar registers this instance with the Consul agent at consulAddr.
func newRegistrar(consulAddr, httpAddr string, logger log.Logger) (*consulsd.Registrar, error) {
	asr, err := newRegistration(httpAddr)
	if err != nil {
		return nil, err
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = consulAddr
	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	client := consulsd.NewClient(consulClient)
	return consulsd.NewRegistrar(client, asr, logger), nil
}

// newRegistration describes this instance under config.ServiceName, with an
// HTTP check against /health.
func newRegistration(httpAddr string) (*api.AgentServiceRegistration, error) {
	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "localhost"
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}

	return &api.AgentServiceRegistration{
		ID:      uuid.NewV4().String(),
		Name:    config.ServiceName,
		Address: host,
		Port:    p,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port)),
			Interval: "10s",
			Timeout:  "1s",
		},
	}, nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
