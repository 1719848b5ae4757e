// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-corebank/corebank/internal/accountdelivery"
	"github.com/go-corebank/corebank/internal/accountrepo"
	"github.com/go-corebank/corebank/internal/accountservice"
	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/eventbus"
	"github.com/go-corebank/corebank/internal/eventrelay"
	"github.com/go-corebank/corebank/internal/middleware"
	"github.com/go-corebank/corebank/internal/monitoring"
	"github.com/go-corebank/corebank/internal/transactionrepo"
	"github.com/go-corebank/corebank/internal/transferdelivery"
	"github.com/go-corebank/corebank/internal/transferservice"
	"github.com/go-corebank/corebank/pkg/breakerpkg"
	"github.com/go-corebank/corebank/pkg/configpkg"
	"github.com/go-corebank/corebank/pkg/dbpkg"
	"github.com/go-corebank/corebank/pkg/lockpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB         *sql.DB
	Engine     *gin.Engine
	Config     configpkg.Config
	Dispatcher *eventbus.Dispatcher
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close drains the event dispatcher and releases the db connection.
func (s *Server) Close() error {
	s.Dispatcher.Close()
	return s.DB.Close()
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	metrics := monitoring.New(prometheus.DefaultRegisterer)

	locker := newLocker(config, metrics)
	runner := dbpkg.NewRunner(conn)

	dispatcher := eventbus.New(eventbus.Config{
		CoreWorkers: config.EventCoreWorkers,
		MaxWorkers:  config.EventMaxWorkers,
		QueueSize:   config.EventQueueSize,
	}, metrics, logger)

	if config.AMQPSource != "" {
		relay, err := eventrelay.NewAMQPRelay(config.AMQPSource)
		if err != nil {
			return nil, err
		}

		dispatcher.Subscribe(relay)
	}

	accountRepo := accountrepo.NewRepoPGS(conn)
	transactionRepo := transactionrepo.NewRepoPGS(conn)

	breakerConfig := breakerpkg.Config{
		WindowSize:       config.BreakerWindowSize,
		MinCalls:         config.BreakerMinCalls,
		FailureThreshold: config.BreakerThreshold,
		OpenTimeout:      config.BreakerOpenTimeout,
		HalfOpenMax:      config.BreakerHalfOpenMax,
		IsFailure:        isTechnicalFailure,
	}

	accountService := accountservice.New(
		accountRepo,
		transactionRepo,
		runner,
		locker,
		dispatcher,
		breakerpkg.New("accountWrite", breakerConfig),
		breakerpkg.New("accountRead", breakerConfig),
		metrics,
	)

	transferService := transferservice.New(
		accountRepo,
		transactionRepo,
		runner,
		locker,
		dispatcher,
		breakerpkg.New("transfer", breakerConfig),
		metrics,
	)

	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger, metrics))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts", accountHandler.List)
	engine.GET("/accounts/:number", accountHandler.Get)
	engine.GET("/accounts/:number/transactions", accountHandler.History)
	engine.POST("/accounts/:number/deposit", accountHandler.Deposit)
	engine.POST("/accounts/:number/withdraw", accountHandler.Withdraw)

	engine.POST("/transfers", transferHandler.Create)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &Server{
		DB:         conn,
		Engine:     engine,
		Config:     config,
		Dispatcher: dispatcher,
	}

	return server, nil
}

func newLocker(config configpkg.Config, metrics *monitoring.Metrics) lockpkg.Locker {
	cfg := lockpkg.Config{
		AcquireTimeout: config.LockAcquireTimeout,
		LeaseTime:      config.LockLeaseTime,
		RetryInterval:  config.LockRetryInterval,
	}

	if config.LockBackend == "memory" {
		return lockpkg.NewMemoryLocker(cfg, metrics)
	}

	return lockpkg.NewRedisLocker(redis.NewClient(&redis.Options{Addr: config.RedisAddress}), cfg, metrics)
}

// isTechnicalFailure keeps business rejections out of the breakers' failure
// statistics; only infrastructure faults may open a breaker.
func isTechnicalFailure(err error) bool {
	return !domain.IsBusinessError(err)
}
