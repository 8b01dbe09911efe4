package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	grpchealth "google.golang.org/grpc/health"

	"tokengate/internal/auth"
	"tokengate/internal/config"
	"tokengate/internal/health"
	"tokengate/internal/i18n"
	"tokengate/internal/identity/service"
	"tokengate/internal/metrics"
	"tokengate/internal/security"
	"tokengate/internal/server"
	"tokengate/internal/server/httpapi"
	"tokengate/internal/telemetry"
	telemetryotel "tokengate/internal/telemetry/otel"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}
	scopes, policyChecker, err := newScopeAuthorizer(ctx, cfg)
	if err != nil {
		return err
	}
	translator, err := i18n.New(cfg.DefaultLanguage)
	if err != nil {
		return err
	}

	m := metrics.New()
	tokens := auth.NewService(signer, st.sessions,
		auth.WithScopeAuthorizer(scopes),
		auth.WithEmitter(emitter),
		auth.WithMetrics(m),
	)
	identity := service.NewAuthService(st.users, tokens, security.NewHasher(cfg.BcryptCost), cfg.TokenTTL())

	checker := health.NewChecker(st.pinger, policyChecker)
	hs := grpchealth.NewServer()
	go checker.Watch(ctx, hs, healthInterval)

	api := httpapi.New(identity, tokens, translator,
		httpapi.WithCookie(httpapi.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure}),
		httpapi.WithMetrics(m),
		httpapi.WithHealth(checker),
	)
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", api.Router())
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcServer := server.NewGRPCServer(server.Deps{
		Validator:    tokens,
		Translator:   translator,
		Emitter:      emitter,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		Health:       hs,
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	done := make(chan error, 2)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("http serve: %w", err)
			return
		}
		done <- nil
	}()
	go func() {
		log.Printf("gRPC server listening on %s (store=%s, alg=%s)", cfg.GRPCAddr, cfg.StoreDriver, signer.Alg())
		if err := grpcServer.Serve(lis); err != nil {
			done <- fmt.Errorf("grpc serve: %w", err)
			return
		}
		done <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Println("shutting down...")
	case serveErr = <-done:
	}

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	log.Println("servers stopped")

	// Let in-flight async emits finish before the logger provider goes away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	return serveErr
}
