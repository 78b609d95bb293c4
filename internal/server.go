package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/trainlog/internal/auth"
	"github.com/2beens/trainlog/internal/catalog"
	"github.com/2beens/trainlog/internal/config"
	"github.com/2beens/trainlog/internal/db"
	"github.com/2beens/trainlog/internal/friends"
	"github.com/2beens/trainlog/internal/middleware"
	"github.com/2beens/trainlog/internal/musclegroups"
	"github.com/2beens/trainlog/internal/telemetry/metrics"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/internal/users"
	"github.com/2beens/trainlog/internal/workouts"
	"github.com/2beens/trainlog/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config         *config.Config
	VersionInfo    string
	RedisPassword  string
	TracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "trainlog_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService(auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	otelShutdown, err := tracing.Setup(params.TracingEnabled, "trainlog-backend", rdb)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("trainlog-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
	}).Methods("GET", "OPTIONS").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET", "OPTIONS").Name("version")

	usersRepo := users.NewRepo(s.dbPool)
	workoutsRepo := workouts.NewRepo(s.dbPool)
	catalogRepo := catalog.NewRepo(s.dbPool)
	friendsRepo := friends.NewRepo(s.dbPool)

	usersHandler := users.NewHandler(usersRepo, s.authService)
	authSubrouter := r.PathPrefix("/a").Subrouter()
	authSubrouter.
		HandleFunc("/register", usersHandler.HandleRegister).
		Methods("POST", "OPTIONS").Name("register")
	authSubrouter.
		HandleFunc("/login", usersHandler.HandleLogin).
		Methods("POST", "OPTIONS").Name("login")
	authSubrouter.
		HandleFunc("/logout", usersHandler.HandleLogout).
		Methods("GET", "OPTIONS").Name("logout")

	// rate limit the account endpoints to prevent abuse
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authSubrouter.Use(middleware.RateLimit(
		reqRateLimiter, "login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))
	authSubrouter.Use(middleware.Cors())

	r.HandleFunc("/api/profile", usersHandler.HandleGetProfile).
		Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/api/profile", usersHandler.HandleUpdateProfile).
		Methods("PUT", "OPTIONS").Name("update-profile")

	muscleGroupsHandler := musclegroups.NewHandler()
	r.HandleFunc("/api/muscle-groups", muscleGroupsHandler.HandleList).
		Methods("GET", "OPTIONS").Name("muscle-groups")

	workoutsHandler := workouts.NewHandler(workoutsRepo, s.metricsManager)
	r.HandleFunc("/api/workouts", workoutsHandler.HandleList).
		Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/api/workouts", workoutsHandler.HandleAdd).
		Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/api/workouts/day/{date}", workoutsHandler.HandleDayView).
		Methods("GET", "OPTIONS").Name("workouts-day")
	r.HandleFunc("/api/workouts/range", workoutsHandler.HandleRange).
		Methods("GET", "OPTIONS").Name("workouts-range")
	r.HandleFunc("/api/workouts/{id}", workoutsHandler.HandleUpdate).
		Methods("PUT", "OPTIONS").Name("update-workout")
	r.HandleFunc("/api/workouts/{id}", workoutsHandler.HandleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc("/api/statistics", workoutsHandler.HandleStatistics).
		Methods("GET", "OPTIONS").Name("statistics")

	catalogHandler := catalog.NewHandler(catalogRepo, s.metricsManager)
	r.HandleFunc("/api/exercises", catalogHandler.HandleListAll).
		Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/api/exercises", catalogHandler.HandleAdd).
		Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/api/exercises/order", catalogHandler.HandleSaveOrder).
		Methods("POST", "OPTIONS").Name("save-exercise-order")
	r.HandleFunc("/api/exercises/repair/itemcodes", catalogHandler.HandleRepairItemCodes).
		Methods("POST", "OPTIONS").Name("repair-item-codes")
	r.HandleFunc("/api/exercises/repair/duplicates", catalogHandler.HandleRepairDuplicates).
		Methods("POST", "OPTIONS").Name("repair-duplicates")
	r.HandleFunc("/api/exercises/{muscleGroup}", catalogHandler.HandleListByMuscleGroup).
		Methods("GET", "OPTIONS").Name("list-exercises-group")
	r.HandleFunc("/api/exercises/{id}", catalogHandler.HandleUpdate).
		Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/api/exercises/{id}", catalogHandler.HandleDelete).
		Methods("DELETE", "OPTIONS").Name("delete-exercise")

	friendsService := friends.NewService(friendsRepo, usersRepo, workoutsRepo, s.metricsManager)
	friendsHandler := friends.NewHandler(friendsService)
	r.HandleFunc("/api/friends", friendsHandler.HandleListFriends).
		Methods("GET", "OPTIONS").Name("list-friends")
	r.HandleFunc("/api/friends/requests", friendsHandler.HandleListRequests).
		Methods("GET", "OPTIONS").Name("list-friend-requests")
	r.HandleFunc("/api/friends/requests", friendsHandler.HandleSendRequest).
		Methods("POST", "OPTIONS").Name("new-friend-request")
	r.HandleFunc("/api/friends/requests/{id}/accept", friendsHandler.HandleAcceptRequest).
		Methods("POST", "OPTIONS").Name("accept-friend-request")
	r.HandleFunc("/api/friends/requests/{id}/reject", friendsHandler.HandleRejectRequest).
		Methods("POST", "OPTIONS").Name("reject-friend-request")
	r.HandleFunc("/api/friends/repair", friendsHandler.HandleRepair).
		Methods("POST", "OPTIONS").Name("repair-friends")
	r.HandleFunc("/api/friends/feed", friendsHandler.HandleFeed).
		Methods("GET", "OPTIONS").Name("friends-feed")
	r.HandleFunc("/api/friends/{friendID}", friendsHandler.HandleRemoveFriend).
		Methods("DELETE", "OPTIONS").Name("remove-friend")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, strconv.Itoa(s.config.PrometheusMetricsPort))
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
