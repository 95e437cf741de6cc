package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/narthex/vouch/api"
	"github.com/narthex/vouch/auth"
	"github.com/narthex/vouch/internal/util"
	"github.com/narthex/vouch/ratelimit"
	"github.com/narthex/vouch/store"
	bboltstore "github.com/narthex/vouch/store/bbolt"
	pgstore "github.com/narthex/vouch/store/postgres"
)

var (
	port           int
	dataDir        string
	postgresDSN    string
	redisAddr      string
	tlsCert        string
	tlsKey         string
	admins         []string
	peerThreshold  int
	requestTTL     time.Duration
	sessionTTL     time.Duration
	trustedProxies string
	webhookURL     string
	webhookAuth    string
	limitIdentity  int
	limitOrigin    int
	limitWindow    time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication service server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		var st store.Store
		if postgresDSN != "" {
			pg, err := pgstore.NewFromDSN(cmd.Context(), postgresDSN)
			if err != nil {
				return fmt.Errorf("failed to open postgres storage: %w", err)
			}
			defer pg.Close()
			st = pg
		} else {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			bs, err := bboltstore.NewFromFile(dataDir+"/vouch.db", nil)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer bs.Close()
			st = bs
		}

		limitCfg := ratelimit.Config{
			PerIdentity: limitIdentity,
			PerOrigin:   limitOrigin,
			Window:      limitWindow,
		}
		var limiter ratelimit.Limiter
		var memLimiter *ratelimit.MemoryLimiter
		if redisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: redisAddr})
			defer client.Close()
			limiter = ratelimit.NewRedisLimiter(client, limitCfg)
		} else {
			memLimiter = ratelimit.NewMemoryLimiter(limitCfg)
			limiter = memLimiter
		}

		var sessionStore auth.SessionStore
		if secret := os.Getenv("VOUCH_SESSION_SECRET"); secret != "" {
			sealed, err := auth.NewSealedSessionStore(st, secret)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer sealed.Close()
			sessionStore = sealed
		} else {
			logger.Warn("VOUCH_SESSION_SECRET not set; sessions are in-memory and will not survive restarts")
			sessionStore = auth.NewMemorySessionStore()
		}
		sessions := auth.NewSessionManager(sessionStore, sessionTTL)

		invites := auth.NewMemoryInviteStore()
		svc := auth.New(st, sessions,
			auth.WithAdmins(admins...),
			auth.WithPeerThreshold(peerThreshold),
			auth.WithRequestTTL(requestTTL),
			auth.WithRateLimiter(limiter),
			auth.WithInviteVerifier(invites),
			auth.WithLogger(logger),
		)

		apiOpts := []api.Option{
			api.WithLogger(logger),
			api.WithAlertFunc(func(event api.AlertEvent) {
				logger.Warn("anomaly detected",
					"type", string(event.Type),
					"count", event.Count,
					"threshold", event.Threshold,
				)
			}),
		}
		if trustedProxies != "" {
			prefixes, err := api.ParseTrustedProxies(trustedProxies)
			if err != nil {
				return err
			}
			apiOpts = append(apiOpts, api.WithTrustedProxies(prefixes))
		}
		if webhookURL != "" {
			apiOpts = append(apiOpts, api.WithAuditWebhook(webhookURL, webhookAuth))
		}
		a := api.New(svc, apiOpts...)
		defer a.Close()

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/api/v1", a.Router())

		// Background sweeps: expire stale requests, drop aged-out
		// limiter entries.
		sweepCtx, stopSweeps := context.WithCancel(context.Background())
		defer stopSweeps()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-ticker.C:
					if n, err := svc.ExpireStale(time.Now()); err != nil {
						logger.Error("expiry sweep failed", "error", err)
					} else if n > 0 {
						logger.Info("expired stale requests", "count", n)
					}
					if memLimiter != nil {
						memLimiter.Sweep(time.Now())
					}
				}
			}
		}()

		var tlsConfig *tls.Config
		if tlsCert != "" && tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			fmt.Println("Using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data (BBolt backend)")
	serverCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN; overrides the BBolt backend")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for distributed rate limiting")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().StringSliceVar(&admins, "admin", nil, "Admin identity (repeatable)")
	serverCmd.Flags().IntVar(&peerThreshold, "peer-threshold", auth.DefaultPeerThreshold, "Distinct peer approvals needed for auto-approval")
	serverCmd.Flags().DurationVar(&requestTTL, "request-ttl", auth.DefaultRequestTTL, "Authentication request lifetime")
	serverCmd.Flags().DurationVar(&sessionTTL, "session-ttl", auth.DefaultSessionTTL, "Session lifetime")
	serverCmd.Flags().StringVar(&trustedProxies, "trusted-proxies", "", "Comma-separated CIDRs whose proxy headers are honored")
	serverCmd.Flags().StringVar(&webhookURL, "audit-webhook-url", "", "URL receiving audit events as JSON POSTs")
	serverCmd.Flags().StringVar(&webhookAuth, "audit-webhook-auth", "", `Auth header for the webhook ("Header: Value")`)
	serverCmd.Flags().IntVar(&limitIdentity, "limit-per-identity", 3, "Max request creations per identity per window")
	serverCmd.Flags().IntVar(&limitOrigin, "limit-per-origin", 12, "Max request creations per origin per window")
	serverCmd.Flags().DurationVar(&limitWindow, "limit-window", time.Hour, "Rate limit window")
}
