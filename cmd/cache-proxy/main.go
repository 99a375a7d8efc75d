package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/http-cache-store/pkg/cache"
	"github.com/Sternrassler/http-cache-store/pkg/client"
	"github.com/Sternrassler/http-cache-store/pkg/config"
	"github.com/Sternrassler/http-cache-store/pkg/logging"
	"github.com/Sternrassler/http-cache-store/pkg/metrics"
	"github.com/Sternrassler/http-cache-store/pkg/warmup"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cache-proxy: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Log.Level)
	logCfg.Pretty = cfg.Log.Pretty
	logger := logging.Setup(logCfg).With().Str("component", "cache-proxy").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	logger.Info().Str("backend", cfg.Cache.Backend).Msg("Cache store ready")

	clientCfg := client.DefaultConfig(store, cfg.UserAgent)
	clientCfg.Timeout = cfg.Timeout.Duration
	httpClient, err := client.New(clientCfg)
	if err != nil {
		return err
	}
	defer httpClient.Close()

	if len(cfg.Warmup.URLs) > 0 {
		warmCfg := warmup.DefaultConfig()
		warmCfg.MaxConcurrency = cfg.Warmup.MaxConcurrency
		go func() {
			if _, err := warmup.NewWarmer(httpClient, warmCfg).Warm(ctx, cfg.Warmup.URLs); err != nil {
				logger.Warn().Err(err).Msg("Warmup did not finish")
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(httpClient, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting cache proxy")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore builds the configured cache backend.
func openStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil

	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisStore(redisClient, cfg.RedisPrefix), nil

	case config.BackendSQLite:
		store, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func newRouter(c *client.Client, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/fetch", fetchHandler(c, logger))
	r.Get("/freshness", freshnessHandler(c, logger))

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// fetchHandler proxies GET /fetch?url=... through the caching client.
func fetchHandler(c *client.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		resp, err := c.Get(r.Context(), target)
		if err != nil {
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		copyHeader(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("Failed to write response")
		}
	}
}

// hopByHopHeaders apply to a single connection and are not forwarded
// (RFC 9110 §7.6.1).
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// copyHeader adds the end-to-end headers of src to dst.
func copyHeader(dst, src http.Header) {
	skip := map[string]bool{}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			skip[http.CanonicalHeaderKey(strings.TrimSpace(name))] = true
		}
	}

	for key, values := range src {
		key = http.CanonicalHeaderKey(key)
		if hopByHopHeaders[key] || skip[key] {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// freshnessReport is the JSON body of /freshness.
type freshnessReport struct {
	URL        string `json:"url"`
	Status     int    `json:"status"`
	Cache      string `json:"cache"`
	Date       string `json:"date"`
	MaxAge     *int64 `json:"max_age"`
	Age        int64  `json:"age"`
	TTL        *int64 `json:"ttl"`
	Fresh      bool   `json:"fresh"`
	BodyLength int    `json:"body_length"`
}

// freshnessHandler reports the freshness of GET /freshness?url=... in seconds.
// max_age and ttl are null when the response carries no freshness lifetime.
func freshnessHandler(c *client.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		cached, status, err := c.Inspect(r.Context(), target)
		if err != nil {
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}

		f := cached.Evaluate()
		report := freshnessReport{
			URL:        target,
			Status:     cached.Status,
			Cache:      status,
			Date:       cached.Date().Format(http.TimeFormat),
			Age:        int64(f.Age / time.Second),
			Fresh:      f.Fresh,
			BodyLength: len(cached.Body),
		}
		if f.HasMaxAge {
			maxAge := int64(f.MaxAge / time.Second)
			ttl := int64(f.TTL / time.Second)
			report.MaxAge = &maxAge
			report.TTL = &ttl
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("Failed to write freshness report")
		}
	}
}
