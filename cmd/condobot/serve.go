package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/zulandar/condobot/internal/bot"
	"github.com/zulandar/condobot/internal/bot/whatsapp"
	"github.com/zulandar/condobot/internal/config"
	"github.com/zulandar/condobot/internal/db"
	"github.com/zulandar/condobot/internal/laundry"
	"github.com/zulandar/condobot/internal/metrics"
	"github.com/zulandar/condobot/internal/parcels"
	"github.com/zulandar/condobot/internal/server"
	"github.com/zulandar/condobot/internal/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long:  "Starts the webhook server, connects to the Evolution API instance and serves the parcels and laundry groups until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "condobot.yaml", "path to condobot config file")
	return cmd
}

// loadConfig reads .env then the YAML config.
func loadConfig(configPath string) (*config.Config, error) {
	config.LoadEnvFiles(".env")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	return a.run(ctx)
}

// app is the assembled bot process.
type app struct {
	whatsapp *whatsapp.Adapter
	router   *bot.Router
	daemon   *bot.Daemon
	laundry  *laundry.Engine // nil without laundry groups
	parcels  *parcels.Engine // nil without parcels groups
	registry *prometheus.Registry
	port     int
	out      io.Writer
}

// newApp wires the transport, record store, engines and scheduler from cfg.
// Nothing is contacted until run.
func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	loc, err := time.LoadLocation(cfg.Laundry.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Laundry.Timezone, err)
	}

	wa, err := whatsapp.New(whatsapp.AdapterOpts{
		URL:      cfg.WhatsApp.URL,
		Instance: cfg.WhatsApp.Instance,
		APIKey:   cfg.WhatsApp.APIKey,
	})
	if err != nil {
		return nil, err
	}

	records := store.NewClient(store.ClientOpts{Timeout: cfg.Store.Timeout()})

	var msgLog *bot.MessageLog
	if cfg.Store.LogURL != "" {
		msgLog, err = bot.NewMessageLog(bot.MessageLogOpts{
			Store:      records,
			Collection: cfg.Store.LogURL,
			Location:   loc,
		})
		if err != nil {
			return nil, err
		}
	}
	adapter := msgLog.Wrap(wa)

	a := &app{
		whatsapp: wa,
		registry: metrics.NewRegistry(),
		port:     cfg.Server.Port,
		out:      out,
	}

	var workflows []bot.Workflow
	if len(cfg.Groups.Parcels) > 0 {
		a.parcels, err = parcels.NewEngine(parcels.EngineOpts{
			Adapter:           adapter,
			Store:             records,
			ParcelsCollection: cfg.Store.ParcelsURL,
			HistoryCollection: cfg.Store.HistoryURL,
			IdleTimeout:       cfg.Sessions.IdleTimeout(),
			Location:          loc,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		workflows = append(workflows, bot.Workflow{Name: "parcels", Conversations: cfg.Groups.Parcels, Engine: a.parcels})
	}

	if len(cfg.Groups.Laundry) > 0 {
		states, err := openStateStore(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		var weather laundry.Forecaster
		if cfg.Laundry.WeatherAPIKey != "" {
			weather, err = laundry.NewWeatherClient(laundry.WeatherOpts{
				APIKey: cfg.Laundry.WeatherAPIKey,
				City:   cfg.Laundry.WeatherCity,
			})
			if err != nil {
				a.close()
				return nil, err
			}
		}
		a.laundry, err = laundry.NewEngine(laundry.EngineOpts{
			Adapter:      adapter,
			Groups:       wa,
			StateStore:   states,
			Weather:      weather,
			Location:     loc,
			WashDuration: cfg.Laundry.WashDuration(),
			WarningLead:  cfg.Laundry.WarningLead(),
			InfoDelay:    cfg.Laundry.InfoDelay(),
			MaxLoadKg:    cfg.Laundry.MaxLoadKg,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		workflows = append(workflows, bot.Workflow{Name: "laundry", Conversations: cfg.Groups.Laundry, Engine: a.laundry})
	}

	a.router, err = bot.NewRouter(bot.RouterOpts{Workflows: workflows, Log: msgLog, Out: out})
	if err != nil {
		a.close()
		return nil, err
	}

	var announcer *bot.Announcer
	if len(cfg.Announcements) > 0 {
		items := make([]bot.Announcement, len(cfg.Announcements))
		for i, ac := range cfg.Announcements {
			items[i] = bot.Announcement{Cron: ac.Cron, Conversations: ac.Groups, Text: ac.Text}
		}
		announcer, err = bot.NewAnnouncer(bot.AnnouncerOpts{
			Adapter:       adapter,
			Announcements: items,
			Location:      loc,
			Out:           out,
		})
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.daemon, err = bot.NewDaemon(bot.DaemonOpts{
		Adapter:   adapter,
		Router:    a.router,
		Announcer: announcer,
		OnConnect: a.restore,
		Out:       out,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// openStateStore picks the JSON file when laundry.state_path is set and the
// configured database otherwise.
func openStateStore(cfg *config.Config) (laundry.StateStore, error) {
	if cfg.Laundry.StatePath != "" {
		return &laundry.FileStateStore{Path: cfg.Laundry.StatePath}, nil
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	return &laundry.DBStateStore{DB: gormDB}, nil
}

// run serves the webhook and the daemon until ctx is cancelled or either
// fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.Start(ctx, server.StartOpts{
			Deliverer: a.whatsapp,
			Registry:  a.registry,
			Port:      a.port,
			Out:       a.out,
		})
		cancel()
	}()

	err := a.daemon.Run(ctx)
	cancel()
	if serr := <-srvErr; err == nil {
		err = serr
	}
	return err
}

// restore loads persisted laundry state once the transport is connected, so
// hand-offs owed from downtime reach the next participant in line.
func (a *app) restore(ctx context.Context) error {
	if a.laundry == nil {
		return nil
	}
	if err := a.laundry.Restore(ctx); err != nil {
		return fmt.Errorf("restore laundry state: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.laundry != nil {
		a.laundry.Close()
	}
}
