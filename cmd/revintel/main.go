package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hs-platform/revintel/internal/api"
	"github.com/hs-platform/revintel/internal/auth"
	"github.com/hs-platform/revintel/internal/cache"
	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/eventbus"
	"github.com/hs-platform/revintel/internal/health"
	"github.com/hs-platform/revintel/internal/keymanager"
	"github.com/hs-platform/revintel/internal/metrics"
	"github.com/hs-platform/revintel/internal/orchestrator"
	"github.com/hs-platform/revintel/internal/ratelimit"
	"github.com/hs-platform/revintel/internal/telemetry"
	"github.com/hs-platform/revintel/pkg/config"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}
	if *showVersion {
		fmt.Printf("revintel v%s\n", version)
		return
	}

	cfg, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		log.Fatalf("failed to load config from %s: %v", *configPath, err)
	}

	warnings, err := cfg.Validate()
	for _, warning := range warnings {
		log.Printf("Config warning: %s", warning)
	}
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := database.New(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Credential store for integration secrets.
	keyStorePath := cfg.Security.KeyStorePath
	if keyStorePath == "" {
		keyStorePath = filepath.Join(".", ".credentials.json")
	}
	km := keymanager.New(keyStorePath)
	if password := loadPassword(); password != "" {
		if err := km.Unlock(password); err != nil {
			log.Fatalf("failed to unlock credential store: %v", err)
		}
		seedCredentials(km, cfg)
	} else {
		log.Printf("Warning: REVINTEL_PASSWORD not set, credential store stays locked")
	}

	// OpenTelemetry
	if cfg.Telemetry.Enabled {
		serviceName := cfg.Telemetry.ServiceName
		if serviceName == "" {
			serviceName = "revintel"
		}
		shutdownTelemetry, err := telemetry.InitTelemetry(context.Background(), serviceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			log.Printf("Warning: failed to initialize telemetry: %v", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					log.Printf("Error shutting down telemetry: %v", err)
				}
			}()
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event bus: JetStream when configured, in-memory otherwise.
	var bus interface {
		eventbus.Publisher
		eventbus.Subscriber
	}
	var natsBus *eventbus.NatsBus
	if cfg.Events.NATSEnabled {
		natsBus, err = eventbus.NewNatsBus(eventbus.Config{
			URL:        cfg.Events.NATSURL,
			StreamName: cfg.Events.StreamName,
		})
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsBus.Close()
		bus = natsBus
	} else {
		bus = eventbus.NewMemoryBus()
	}

	responseCache := buildCache(cfg)
	defer responseCache.Stop()

	limiter := buildLimiter(cfg)

	orch := orchestrator.New(db, bus, cfg.Agents.Cooldown, cfg.Agents.ExecuteTimeout)

	authManager := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err := authManager.Bootstrap(os.Getenv("REVINTEL_ADMIN_PASSWORD")); err != nil {
		log.Fatalf("failed to bootstrap admin user: %v", err)
	}

	prom := metrics.NewMetrics()
	watchdog := health.NewWatchdog(30 * time.Second)
	watchdog.AddCheck("database", func(ctx context.Context) error {
		prom.DatabaseConnections.Set(float64(db.Stats().OpenConnections))
		return db.Ping()
	})
	if natsBus != nil {
		watchdog.AddCheck("nats", func(ctx context.Context) error {
			if !natsBus.Healthy() {
				return fmt.Errorf("nats connection down")
			}
			return nil
		})
	}
	go watchdog.Start(runCtx)

	// Hourly stale-session sweep through the maintenance agent so the runs
	// show up in the execution history.
	go maintenanceLoop(runCtx, orch)

	apiServer := api.NewServer(db, authManager, responseCache, limiter, orch, watchdog, bus, cfg)
	handler := otelhttp.NewHandler(apiServer.SetupRoutes(), "revintel-http-server")

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("revintel API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// buildCache wires the configured cache backend.
func buildCache(cfg *config.Config) *cache.Cache {
	cacheCfg := &cache.Config{
		Enabled:       cfg.Cache.Enabled,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		MaxSize:       cfg.Cache.MaxSize,
		CleanupPeriod: cfg.Cache.CleanupPeriod,
	}
	if cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		backend, err := cache.NewRedisBackend(cfg.Cache.RedisURL)
		if err != nil {
			log.Printf("Warning: redis cache unavailable, falling back to memory: %v", err)
		} else {
			log.Printf("Using Redis response cache")
			return cache.NewWithBackend(backend, cacheCfg)
		}
	}
	return cache.New(cacheCfg)
}

// buildLimiter wires the configured rate limiter. Nil disables limiting.
func buildLimiter(cfg *config.Config) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Backend == "redis" {
		limiter, err := ratelimit.NewRedisLimiter(cfg.RateLimit.RedisURL, cfg.RateLimit.RequestsPerMinute)
		if err != nil {
			log.Printf("Warning: redis rate limiter unavailable, falling back to memory: %v", err)
		} else {
			log.Printf("Using Redis rate limiter")
			return limiter
		}
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute)
}

// maintenanceLoop purges stale sessions every hour.
func maintenanceLoop(ctx context.Context, orch *orchestrator.Orchestrator) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := orch.Execute(ctx, "maintenance", "stale-session-purge", "", nil); err != nil {
				log.Printf("Maintenance sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// seedCredentials moves integration secrets from the environment into the
// encrypted store so they survive restarts without env plumbing. Existing
// entries are not overwritten.
func seedCredentials(km *keymanager.Manager, cfg *config.Config) {
	seeds := []struct {
		id, provider, description, secret string
	}{
		{"stripe", "stripe", "Stripe API key", cfg.Integrations.StripeKey},
		{"anthropic", "anthropic", "Anthropic API key", cfg.Integrations.AnthropicKey},
		{"airtable", "airtable", "Airtable API key", cfg.Integrations.AirtableKey},
		{"github", "github", "GitHub token", cfg.Integrations.GitHubToken},
		{"netlify", "netlify", "Netlify token", cfg.Integrations.NetlifyToken},
		{"render", "render", "Render API key", cfg.Integrations.RenderKey},
		{"google-oauth", "google", "Google OAuth client secret", cfg.Integrations.GoogleClientSecret},
	}
	for _, seed := range seeds {
		if seed.secret == "" {
			continue
		}
		if _, err := km.GetCredential(seed.id); err == nil {
			continue
		}
		if err := km.StoreCredential(seed.id, seed.provider, seed.description, seed.secret); err != nil {
			log.Printf("Warning: failed to store %s credential: %v", seed.id, err)
		} else {
			log.Printf("Stored %s credential in the encrypted key store", seed.id)
		}
	}
}

func loadPassword() string {
	if pwd := os.Getenv("REVINTEL_PASSWORD"); pwd != "" {
		return pwd
	}

	if envData, err := os.ReadFile(".env"); err == nil {
		for _, line := range strings.Split(string(envData), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "REVINTEL_PASSWORD=") {
				pwd := strings.TrimPrefix(line, "REVINTEL_PASSWORD=")
				return strings.Trim(pwd, "\"'")
			}
		}
	}
	return ""
}

func printHelp() {
	fmt.Println("Usage: revintel [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config   Path to configuration file (default: config.yaml)")
	fmt.Println("  -version  Show version information")
	fmt.Println("  -help     Show help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DATABASE_URL              Postgres connection string")
	fmt.Println("  REVINTEL_JWT_SECRET       JWT signing secret")
	fmt.Println("  REVINTEL_ADMIN_PASSWORD   Initial admin password")
	fmt.Println("  REVINTEL_PASSWORD         Master password for the credential store")
}
