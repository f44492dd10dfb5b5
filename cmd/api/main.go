package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"linkcut.local/internal/app/link"
	linkcache "linkcut.local/internal/app/link/cache"
	"linkcut.local/internal/app/link/httpapi"
	"linkcut.local/internal/app/link/repo"
	"linkcut.local/internal/platform/auth"
	platformcache "linkcut.local/internal/platform/cache"
	"linkcut.local/internal/platform/config"
	"linkcut.local/internal/platform/db"
	"linkcut.local/internal/platform/httpmiddleware"
	"linkcut.local/internal/platform/httpserver"
	"linkcut.local/internal/platform/metrics"
	"linkcut.local/internal/platform/migrate"
	"linkcut.local/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg := config.Load()

	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	slog.SetDefault(slog.New(h))

	// DB
	dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	dbPool, errDB := db.New(dbCtx, cfg.DBDSN)
	if errDB != nil {
		log.Fatal(errDB)
	}
	defer dbPool.Close()
	if err := dbPool.Ping(dbCtx); err != nil {
		log.Fatal(err)
	}
	slog.Info("database connected")

	// 迁移
	migCtx, cancelMig := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMig()
	if res, err := migrate.Up(migCtx, dbPool, "migrations"); err != nil {
		log.Fatal(err)
	} else if len(res.AppliedFiles) > 0 {
		slog.Info("migrations applied", "files", res.AppliedFiles)
	}

	// Redis 负缓存（可关；关了只是没有无效短码的挡板，不影响正确性）
	var missCache *linkcache.MissCache
	if cfg.MissCacheEnabled {
		redisClient, errRedis := platformcache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if errRedis != nil {
			log.Fatal(errRedis)
		}
		defer redisClient.Close()
		missCache = linkcache.NewMissCache(redisClient)
	} else {
		slog.Warn("miss cache disabled by config", "MISS_CACHE_ENABLED", false)
	}

	// 布隆过滤器：预期 100 万短码，1% 误判率
	codeFilter := linkcache.NewCodeFilter(1_000_000, 0.01)

	linksRepo := repo.NewLinksRepo(dbPool, codeFilter, missCache)
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelWarm()
	if err := linksRepo.WarmCodeFilter(warmCtx); err != nil {
		log.Fatal(err)
	}

	validator := link.NewValidator(cfg.MaxURLLength, cfg.BlockedDomains)
	generator := link.NewGenerator(linksRepo, cfg.ShortCodeLength)
	svc := link.NewService(linksRepo, validator, generator, cfg.BaseURL, cfg.DefaultExpirationHours)
	sweeper := link.NewSweeper(linksRepo, cfg.CleanupInterval)

	// 管理接口 JWT
	ts, jwtErr := auth.NewHS256Service(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if jwtErr != nil {
		log.Fatal(jwtErr)
	}

	metrics.Init()

	var shutdown func(context.Context) error
	if cfg.TracingEnabled {
		shutdown = trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.OtlpServiceName)
		if shutdown == nil {
			slog.Error("trace init failed")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error(err.Error())
				}
			}()
		}
	} else {
		slog.Warn("tracing disabled by config", "TRACING_ENABLED", false)
	}

	// 对外业务路由
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer,
		httpmiddleware.AccessLog, httpmiddleware.Metrics)

	httpapi.RegisterWebRoutes(r)
	httpapi.RegisterAPIRoutes(r, svc, sweeper, ts)
	httpapi.RegisterPublicRoutes(r, svc)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(cfg, publicHandler)

	// 仅本机/内网
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := dbPool.Ping(dbCtx); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("DB Ping Err"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("DB ready"))
	})

	adminMux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service_name": cfg.ServiceName,
			"version":      version,
			"commit":       commit,
			"build_time":   buildTime,
			"go_version":   runtime.Version(),
		})
	})

	if cfg.PprofEnabled {
		adminMux.HandleFunc("/debug/pprof/", pprof.Index)
		adminMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		adminMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		adminMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		adminMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	adminSrv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           adminMux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 清理任务独立于请求线程跑
	go sweeper.Run(stopCtx)

	errch := make(chan error, 2)

	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(publicSrv, cfg.ShutdownTimeout, stopCtx)
	}()
	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(adminSrv, cfg.ShutdownTimeout, stopCtx)
	}()

	err := <-errch
	if err != nil {
		stop()
		select {
		case <-errch:
		case <-time.After(cfg.ShutdownTimeout + time.Second):
		}
		log.Fatal(err)
	}

	stop()
	<-errch
}
