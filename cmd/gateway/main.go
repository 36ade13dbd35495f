// Command gateway runs the federation gateway HTTP server. Grounded on
// cmd/federation-gateway/main.go's cobra root command (version/serve
// subcommands) and server/gateway.go's Run (config load, tracer init,
// signal-based graceful shutdown).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/n9te9/federation-core/internal/capability"
	"github.com/n9te9/federation-core/internal/gwconfig"
	"github.com/n9te9/federation-core/internal/gwlog"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/telemetry"
	"github.com/n9te9/federation-core/gatewayhttp"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const gatewayVersion = "v0.1.0"

var configPath string

func main() {
	root := &cobra.Command{Use: "gateway"}
	root.PersistentFlags().StringVar(&configPath, "config", "gateway.yaml", "path to the gateway configuration file")
	root.AddCommand(versionCmd, serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gateway version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("federation-gateway", gatewayVersion)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the federation gateway server",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func run() {
	cfg, err := gwconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gateway configuration: %v\n", err)
		os.Exit(1)
	}

	logger := gwlog.NewForEnvironment(cfg.Environment)
	defer logger.Sync()
	ctx := gwlog.With(context.Background(), logger)

	s, err := buildSchema(cfg)
	if err != nil {
		logger.Fatal("failed to assemble supergraph schema", zap.Error(err))
	}

	gw, err := buildGateway(ctx, cfg, s)
	if err != nil {
		logger.Fatal("failed to build gateway", zap.Error(err))
	}

	var handler http.Handler = gw
	if cfg.Tracing.Enable {
		handler = otelhttp.NewHandler(handler, cfg.ServiceName)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", handler)
	mux.Handle("/graphql/ws", gw.ServeWebSocket(gatewayhttp.WebSocketConfig{
		KeepAlivePingInterval: 30 * time.Second,
	}))

	timeoutDuration, err := cfg.Timeout()
	if err != nil {
		logger.Fatal("failed to parse timeout_duration", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	notifyCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.Init(notifyCtx, cfg.Tracing.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}

	go func() {
		logger.Info("starting gateway server", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("gateway server failed", zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()

	logger.Info("shutting down gateway server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down gateway server cleanly", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracer", zap.Error(err))
	}
	logger.Info("gateway server stopped")
}

// buildSchema composes the supergraph Schema from every configured
// subgraph's SDL files (spec §4.1's assembly input).
func buildSchema(cfg *gwconfig.Config) (*schema.Schema, error) {
	sources := make([]schema.SubgraphSource, 0, len(cfg.Subgraphs))
	for _, sg := range cfg.Subgraphs {
		var sdl []byte
		for _, path := range sg.SDLFiles {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read schema file %q for subgraph %q: %w", path, sg.Name, err)
			}
			sdl = append(sdl, '\n')
			sdl = append(sdl, b...)
		}
		sources = append(sources, schema.SubgraphSource{
			Name:         sg.Name,
			URL:          sg.URL,
			WebsocketURL: sg.WebsocketURL,
			SDL:          sdl,
		})
	}

	builder, err := schema.NewBuilder(sources, nil)
	if err != nil {
		return nil, err
	}
	return builder.Build()
}

// buildGateway wires the capability implementations the configuration
// enables into a gatewayhttp.Gateway.
func buildGateway(ctx context.Context, cfg *gwconfig.Config, s *schema.Schema) (*gatewayhttp.Gateway, error) {
	var opts []gatewayhttp.Option

	if cfg.Auth.Enable {
		authn, err := capability.NewJWTAuthenticator(ctx, capability.OIDCAuthenticatorConfig{
			IssuerURL:         cfg.Auth.IssuerURL,
			ClientID:          cfg.Auth.ClientID,
			SkipClientIDCheck: cfg.Auth.SkipClientIDCheck,
		})
		if err != nil {
			return nil, fmt.Errorf("build authenticator: %w", err)
		}
		opts = append(opts, gatewayhttp.WithAuthenticator(authn))
	}

	if cfg.RateLimit.Enable {
		window, err := cfg.RateLimit.Window()
		if err != nil {
			return nil, fmt.Errorf("rate_limit.window_duration: %w", err)
		}
		opts = append(opts, gatewayhttp.WithRateLimiter(capability.NewHTTPRateLimiter(cfg.RateLimit.RequestLimit, window)))
	}

	if cfg.TrustedDocuments.Enable {
		opts = append(opts, gatewayhttp.WithTrustedDocuments(capability.NewStaticTrustedDocuments()))
	}

	if cfg.EntityCache.Enable {
		opts = append(opts, gatewayhttp.WithEntityCache(buildEntityCache(cfg), cfg.EntityCache.DefaultTTLSeconds))
	}

	if cfg.Retry.Enable {
		ttl, err := cfg.Retry.Window()
		if err != nil {
			return nil, fmt.Errorf("retry.ttl: %w", err)
		}
		fetcher := capability.NewRetryingFetcher(capability.NewHTTPFetcher(), capability.RetryConfig{
			MinPerSecond:   float64(cfg.Retry.MinPerSecond),
			TTL:            ttl,
			RetryPercent:   cfg.Retry.RetryPercent,
			RetryMutations: cfg.Retry.RetryMutations,
		})
		opts = append(opts, gatewayhttp.WithFetcher(fetcher))
	}

	for _, sg := range cfg.Subgraphs {
		if sg.WebsocketURL != "" {
			opts = append(opts, gatewayhttp.WithSubscriptionFetcher(capability.NewWebSocketSubscriptionFetcher()))
			break
		}
	}

	return gatewayhttp.New(cfg, s, opts...)
}

// buildEntityCache builds the configured EntityCache backend (spec
// §6.4's EntityCache capability): Redis when an address is configured,
// an in-process MemoryEntityCache otherwise.
func buildEntityCache(cfg *gwconfig.Config) capability.EntityCache {
	if cfg.EntityCache.RedisAddress == "" {
		return capability.NewMemoryEntityCache()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.EntityCache.RedisAddress})
	return capability.NewRedisEntityCache(client)
}
