package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/claimdeck/claimdeck/internal/audit"
	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/config"
	"github.com/claimdeck/claimdeck/internal/db"
	"github.com/claimdeck/claimdeck/internal/ledger"
	"github.com/claimdeck/claimdeck/internal/livefeed"
	"github.com/claimdeck/claimdeck/internal/readiness"
	"github.com/claimdeck/claimdeck/internal/review"
	"github.com/claimdeck/claimdeck/internal/server"
	"github.com/claimdeck/claimdeck/internal/timeline"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the claimdeck review server",
	Long:  `Starts the claimdeck server with the REST API and the live assessment feed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serverPort != 0 {
			cfg.Port = serverPort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// Open database.
		dbPath := filepath.Join(cfg.DataDir, "claimdeck.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Create and start server.
		srv := server.New(server.Config{
			Port:     cfg.Port,
			DataDir:  cfg.DataDir,
			AllowAll: cfg.AllowAllOrigins,
		}, database)

		// Register all feature routes.
		registerAllRoutes(srv, database, cfg)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "claimdeck server v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)

		return srv.Start()
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, database *db.DB, cfg *config.Config) {
	r := srv.Router()

	// Audit trail
	auditStore := audit.NewStore(database)
	audit.RegisterRoutes(r, auditStore)

	claimStore := claims.NewStore(database, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	// Mutating feature routes record audit entries.
	r.Group(func(r chi.Router) {
		r.Use(audit.Middleware(auditStore))

		// Claims and run snapshots
		claims.RegisterRoutes(r, claimStore)

		// Decision readiness and critical-field summary
		readiness.RegisterRoutes(r, claimStore)

		// Cost ledger
		ledgerSessions := ledger.NewSessionStore()
		ledger.RegisterRoutes(r, claimStore, ledgerSessions)

		// Service timeline
		timeline.RegisterRoutes(r, claimStore)

		// Review notes
		reviewStore := review.NewStore(database)
		review.RegisterRoutes(r, reviewStore, claimStore)

		// Live assessment feed
		hub := livefeed.NewHub()
		livefeed.RegisterRoutes(r, hub)
	})
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
