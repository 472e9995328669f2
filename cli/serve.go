package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/infra/server"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/engine/worker"
	"github.com/rentabot/rentabot/pkg/config"
	"github.com/rentabot/rentabot/pkg/logger"
)

// ServeCmd runs the HTTP server and the two background loops until
// interrupted.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Rent-A-Bot server",
		Long: "Start the HTTP server, the lock expiration reaper and the reservation " +
			"scheduler. Pending reservations are fulfilled oldest first; a reservation " +
			"that cannot be satisfied is skipped so later ones are not starved.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	flags := cmd.Flags()
	flags.String("host", "", "bind address (overrides RENTABOT_SERVER_HOST)")
	flags.Int("port", 0, "listen port (overrides RENTABOT_SERVER_PORT)")
	flags.String("resource-descriptor", "", "path to the YAML resource catalog (overrides RENTABOT_RESOURCE_DESCRIPTOR)")
	flags.Bool("legacy-redirect", false, "redirect the legacy API prefix instead of serving it (overrides RENTABOT_LEGACY_REDIRECT)")
	flags.Bool("cors", false, "enable permissive CORS (overrides RENTABOT_SERVER_CORS_ENABLED)")
	flags.String("log-level", "", "log level: debug, info, warn or error (overrides RENTABOT_LOG_LEVEL)")
	return cmd
}

func runServe(cmd *cobra.Command) error {
	// Optional .env for local development; real deployments set RENTABOT_*
	// in the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	log := logger.NewLogger(&logger.Config{
		Level: logger.LogLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})

	resources := resource.NewStore()
	reservations := reservation.NewStoreWithClock(resources.Now, cfg.ClaimWindow())
	if cfg.ResourceDescriptor != "" {
		catalog, err := resource.LoadDescriptor(cfg.ResourceDescriptor)
		if err != nil {
			return fmt.Errorf("loading resource descriptor: %w", err)
		}
		resources.Populate(catalog)
		log.Info("Loaded resource catalog", "descriptor", cfg.ResourceDescriptor, "resources", len(catalog))
	} else {
		log.Warn("No resource descriptor configured, starting with an empty catalog")
	}

	metrics := monitoring.New()
	metrics.RegisterEngineGauges(
		func() float64 {
			locked := 0
			for _, r := range resources.List() {
				if r.IsLocked() {
					locked++
				}
			}
			return float64(locked)
		},
		func(status string) float64 {
			count := 0
			for _, r := range reservations.Snapshot() {
				if string(r.Status) == status {
					count++
				}
			}
			return float64(count)
		},
	)
	reaper := worker.NewReaper(resources, metrics, cfg.ReaperInterval())
	scheduler := worker.NewScheduler(resources, reservations, metrics, cfg.SchedulerInterval())
	workers := worker.NewManager(reaper, scheduler)
	srv := server.NewServer(cfg, log, resources, reservations, metrics)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return workers.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}

// applyFlagOverrides lets command line flags win over environment config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("resource-descriptor") {
		cfg.ResourceDescriptor, _ = flags.GetString("resource-descriptor")
	}
	if flags.Changed("legacy-redirect") {
		cfg.LegacyRedirect, _ = flags.GetBool("legacy-redirect")
	}
	if flags.Changed("cors") {
		cfg.Server.CORSEnabled, _ = flags.GetBool("cors")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
}
