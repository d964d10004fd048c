package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/config"
	"github.com/cmpeavlerjr72/vbt-api/internal/dashboard"
	"github.com/cmpeavlerjr72/vbt-api/internal/db"
	"github.com/cmpeavlerjr72/vbt-api/internal/maxes"
	"github.com/cmpeavlerjr72/vbt-api/internal/middleware"
	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/profiles"
	"github.com/cmpeavlerjr72/vbt-api/internal/rfid"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/metrics"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/internal/testmetrics"
	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"
	"github.com/cmpeavlerjr72/vbt-api/internal/workouts"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

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
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	verifier    *auth.Verifier
	tracked     workouts.TrackedExercises

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	JWTSecret               string
	DBUser                  string
	DBPassword              string
	RedisPassword           string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.DBUser,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if err := db.Migrate(dbPool); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("vbtapi", "main", promRegistry)
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

	verifier, err := auth.NewVerifier(ctx, auth.NewVerifierParams{
		AuthBaseURL: params.Config.AuthBaseURL,
		JWTSecret:   params.JWTSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("new token verifier: %w", err)
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "vbt-api")
	if err != nil {
		return nil, err
	}

	tracked := workouts.DefaultTrackedExercises()
	if len(params.Config.TrackedExercises) > 0 {
		tracked = workouts.NewTrackedExercises(params.Config.TrackedExercises)
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		redisClient: rdb,
		verifier:    verifier,
		tracked:     tracked,
		versionInfo: params.VersionInfo,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("vbt-api-router"))

	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS").Name("health")

	profilesHandler := profiles.NewHandler(profiles.NewRepo(s.dbPool))
	r.HandleFunc("/profiles/me", profilesHandler.HandleGetMe).Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/profiles/me", profilesHandler.HandleUpdateMe).Methods("PUT", "OPTIONS").Name("update-profile")

	teamsRepo := teams.NewRepo(s.dbPool)
	teamsHandler := teams.NewHandler(teamsRepo)
	r.HandleFunc("/teams", teamsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-team")
	r.HandleFunc("/teams", teamsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-teams")
	r.HandleFunc("/teams/{id}", teamsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-team")
	r.HandleFunc("/teams/{id}", teamsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-team")
	r.HandleFunc("/teams/{id}", teamsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-team")

	playersRepo := players.NewRepo(s.dbPool)
	playersHandler := players.NewHandler(playersRepo)
	r.HandleFunc("/players", playersHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-player")
	r.HandleFunc("/players", playersHandler.HandleList).Methods("GET", "OPTIONS").Name("list-players")
	r.HandleFunc("/players/me", playersHandler.HandleGetMe).Methods("GET", "OPTIONS").Name("get-linked-player")
	r.HandleFunc("/players/claim", playersHandler.HandleClaimInvite).Methods("POST", "OPTIONS").Name("claim-invite")
	r.HandleFunc("/players/{id}", playersHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-player")
	r.HandleFunc("/players/{id}", playersHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-player")
	r.HandleFunc("/players/{id}", playersHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-player")

	maxesHandler := maxes.NewHandler(maxes.NewRepo(s.dbPool))
	r.HandleFunc("/maxes", maxesHandler.HandleUpsert).Methods("POST", "OPTIONS").Name("save-max")
	r.HandleFunc("/maxes", maxesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-maxes")
	r.HandleFunc("/maxes/{id}", maxesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-max")

	testingHandler := testmetrics.NewHandler(testmetrics.NewRepo(s.dbPool))
	r.HandleFunc("/testing", testingHandler.HandleUpsert).Methods("POST", "OPTIONS").Name("save-testing-result")
	r.HandleFunc("/testing", testingHandler.HandleList).Methods("GET", "OPTIONS").Name("list-testing-results")
	r.HandleFunc("/testing/{id}", testingHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-testing-result")

	templatesRepo := workouts.NewTemplatesRepo(s.dbPool)
	assignmentsRepo := workouts.NewAssignmentsRepo(s.dbPool)
	logsRepo := workouts.NewLogsRepo(s.dbPool)
	vbtRepo := vbt.NewRepo(s.dbPool)

	workoutsService := workouts.NewService(
		templatesRepo,
		assignmentsRepo,
		logsRepo,
		vbtRepo,
		playersRepo,
		teamsRepo,
		s.tracked,
	)
	workoutsHandler := workouts.NewHandler(
		templatesRepo,
		assignmentsRepo,
		workoutsService,
		s.tracked,
		s.metricsManager,
	)
	r.HandleFunc("/workouts/templates", workoutsHandler.HandleAddTemplate).Methods("POST", "OPTIONS").Name("new-template")
	r.HandleFunc("/workouts/templates", workoutsHandler.HandleListTemplates).Methods("GET", "OPTIONS").Name("list-templates")
	r.HandleFunc("/workouts/templates/{id}", workoutsHandler.HandleGetTemplate).Methods("GET", "OPTIONS").Name("get-template")
	r.HandleFunc("/workouts/templates/{id}", workoutsHandler.HandleUpdateTemplate).Methods("PUT", "OPTIONS").Name("update-template")
	r.HandleFunc("/workouts/templates/{id}", workoutsHandler.HandleDeleteTemplate).Methods("DELETE", "OPTIONS").Name("remove-template")
	r.HandleFunc("/workouts/assignments", workoutsHandler.HandleAddAssignment).Methods("POST", "OPTIONS").Name("new-assignment")
	r.HandleFunc("/workouts/assignments", workoutsHandler.HandleListAssignments).Methods("GET", "OPTIONS").Name("list-assignments")
	r.HandleFunc("/workouts/assignments/{id}", workoutsHandler.HandleDeleteAssignment).Methods("DELETE", "OPTIONS").Name("remove-assignment")
	r.HandleFunc("/workouts/assignments/{id}/status", workoutsHandler.HandleUpdateAssignmentStatus).Methods("PUT", "OPTIONS").Name("update-assignment-status")
	r.HandleFunc("/workouts/assignments/{id}/progress", workoutsHandler.HandleProgress).Methods("GET", "OPTIONS").Name("assignment-progress")
	r.HandleFunc("/workouts/active", workoutsHandler.HandleActiveWorkouts).Methods("GET", "OPTIONS").Name("active-workouts")
	r.HandleFunc("/workouts/logs", workoutsHandler.HandleSubmitLogs).Methods("POST", "OPTIONS").Name("submit-logs")

	vbtHandler := vbt.NewHandler(vbtRepo, s.metricsManager)
	r.HandleFunc("/vbt/summaries", vbtHandler.HandleListSummaries).Methods("GET", "OPTIONS").Name("list-summaries")
	r.HandleFunc("/vbt/sets/{id}/reps", vbtHandler.HandleListSetReps).Methods("GET", "OPTIONS").Name("list-set-reps")
	r.HandleFunc("/vbt/reps/recent", vbtHandler.HandleRecentReps).Methods("GET", "OPTIONS").Name("recent-reps")
	r.HandleFunc("/vbt/reps/flagged", vbtHandler.HandleFlaggedReps).Methods("GET", "OPTIONS").Name("flagged-reps")
	r.HandleFunc("/vbt/prs", vbtHandler.HandlePersonalRecords).Methods("GET", "OPTIONS").Name("personal-records")

	rfidHandler := rfid.NewHandler(rfid.NewRepo(s.dbPool), s.metricsManager)
	r.HandleFunc("/rfid/tags", rfidHandler.HandleAddTag).Methods("POST", "OPTIONS").Name("new-tag")
	r.HandleFunc("/rfid/tags", rfidHandler.HandleLookupTag).Methods("GET", "OPTIONS").Name("lookup-tag")
	r.HandleFunc("/rfid/tags/{id}/assign", rfidHandler.HandleAssignTag).Methods("POST", "OPTIONS").Name("assign-tag")
	r.HandleFunc("/rfid/scans", rfidHandler.HandleListScans).Methods("GET", "OPTIONS").Name("list-scans")

	dashboardHandler := dashboard.NewHandler(dashboard.NewAnalyzer(
		teamsRepo,
		playersRepo,
		assignmentsRepo,
		logsRepo,
		vbtRepo,
		templatesRepo,
	))
	r.HandleFunc("/dashboard/stats", dashboardHandler.HandleStats).Methods("GET", "OPTIONS").Name("dashboard-stats")
	r.HandleFunc("/dashboard/compliance", dashboardHandler.HandleCompliance).Methods("GET", "OPTIONS").Name("dashboard-compliance")
	r.HandleFunc("/dashboard/team-overviews", dashboardHandler.HandleTeamOverviews).Methods("GET", "OPTIONS").Name("team-overviews")
	r.HandleFunc("/dashboard/activity-feed", dashboardHandler.HandleActivityFeed).Methods("GET", "OPTIONS").Name("activity-feed")
	r.HandleFunc("/dashboard/due-workouts", dashboardHandler.HandleDueWorkouts).Methods("GET", "OPTIONS").Name("due-workouts")
	r.HandleFunc("/dashboard/leaderboard", dashboardHandler.HandleLeaderboard).Methods("GET", "OPTIONS").Name("leaderboard")

	// open device endpoints: no auth token on an ESP32, rate limited instead
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	deviceRouter := r.PathPrefix("/device").Subrouter()
	deviceRouter.Use(middleware.RateLimit(
		reqRateLimiter,
		"device-ingest",
		s.config.DeviceRateLimitPerMin,
		s.metricsManager,
	))
	deviceRouter.HandleFunc("/roster", rfidHandler.HandleDeviceRoster).Methods("GET", "OPTIONS").Name("device-roster")
	deviceRouter.HandleFunc("/scan", rfidHandler.HandleScan).Methods("POST", "OPTIONS").Name("device-scan")
	deviceRouter.HandleFunc("/vbt/sets", vbtHandler.HandleDeviceIngest).Methods("POST", "OPTIONS").Name("device-ingest")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.verifier)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.dbPool.Ping(ctx); err != nil {
		log.Errorf("health check, db ping: %s", err)
		http.Error(w, `{"status":"degraded","db":"down"}`, http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"status":"ok","db":"up","version":%q}`, s.versionInfo))
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
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
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
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

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
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
