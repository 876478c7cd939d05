package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finchley/flowdeck/internal/api"
	"github.com/finchley/flowdeck/internal/archive"
	"github.com/finchley/flowdeck/internal/config"
	"github.com/finchley/flowdeck/internal/conn"
	"github.com/finchley/flowdeck/internal/dedupe"
	"github.com/finchley/flowdeck/internal/dispatch"
	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/state"
	"github.com/finchley/flowdeck/internal/tracing"
	"github.com/finchley/flowdeck/internal/ui"
	"github.com/finchley/flowdeck/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	debug   bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "flowdeck",
	Short:   "A terminal dashboard for live workflow execution",
	Long:    `A terminal user interface that connects to a workflow orchestration backend over WebSocket and shows the workflow graph, execution log, and per-node debug data as events stream in.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/flowdeck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"write debug logs to debug.log (override path with FLOWDECK_LOG)")
	rootCmd.Flags().StringP("url", "u", "",
		"backend base URL (e.g. http://localhost:8080)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.url", rootCmd.Flags().Lookup("url"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("server.url", defaults.Server.URL)
	viper.SetDefault("server.reconnect_delay_ms", defaults.Server.ReconnectDelayMS)
	viper.SetDefault("server.handshake_timeout_ms", defaults.Server.HandshakeTimeoutMS)
	viper.SetDefault("dedupe.capacity", defaults.Dedupe.Capacity)
	viper.SetDefault("dedupe.evict_batch", defaults.Dedupe.EvictBatch)
	viper.SetDefault("archive.enabled", defaults.Archive.Enabled)
	viper.SetDefault("archive.path", defaults.Archive.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("ui.show_debug_pane", defaults.UI.ShowDebugPane)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("ui.max_log_lines", defaults.UI.MaxLogLines)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .flowdeck/config.yaml (current directory)
		// 2. ~/.config/flowdeck/config.yaml (user config)
		if _, err := os.Stat(".flowdeck/config.yaml"); err == nil {
			viper.SetConfigFile(".flowdeck/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "flowdeck"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .flowdeck/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".flowdeck/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	if debug || os.Getenv("FLOWDECK_DEBUG") != "" {
		logPath := os.Getenv("FLOWDECK_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()
		if name := os.Getenv("FLOWDECK_LOG_LEVEL"); name != "" {
			if lvl, ok := log.ParseLevel(name); ok {
				log.SetMinLevel(lvl)
			} else {
				log.Warn(log.CatConfig, "unknown FLOWDECK_LOG_LEVEL, keeping debug", "value", name)
			}
		}
		log.Info(log.CatConfig, "flowdeck starting", "debug", true, "logPath", logPath)
	}

	wsURL, err := conn.DeriveURL(cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", cfg.Server.URL, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	store := state.NewWorkflowStore()
	defer store.Close()

	window := dedupe.NewWindow(cfg.Dedupe.Capacity, cfg.Dedupe.EvictBatch)
	pipeline := dispatch.NewPipeline(window, dispatch.New(store), provider.Tracer())

	mgr := conn.NewManager(conn.Config{
		URL:              wsURL,
		ReconnectDelay:   cfg.Server.ReconnectDelay(),
		HandshakeTimeout: cfg.Server.HandshakeTimeout(),
	}, pipeline.HandleFrame)
	defer mgr.Teardown()

	if cfg.Archive.Enabled {
		db, dbErr := archive.NewDB(cfg.Archive.Path)
		if dbErr != nil {
			return fmt.Errorf("opening execution archive: %w", dbErr)
		}
		defer func() { _ = db.Close() }()
		recorder := archive.NewRecorder(db, store)
		log.SafeGo("archive-recorder", func() { recorder.Run(ctx) })
	}

	// Watch the config file so UI options apply without a restart.
	var reloadCh <-chan struct{}
	if path := viper.ConfigFileUsed(); path != "" {
		w, watchErr := watcher.New(watcher.DefaultConfig(path))
		if watchErr == nil {
			if ch, startErr := w.Start(); startErr == nil {
				reloadCh = ch
				defer func() { _ = w.Stop() }()
			}
		}
	}

	mgr.Connect()

	model := ui.New(ctx, ui.Options{
		Store:    store,
		Manager:  mgr,
		Chat:     api.NewClient(cfg.Server.URL),
		UI:       cfg.UI,
		ReloadCh: reloadCh,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
