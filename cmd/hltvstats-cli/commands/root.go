package commands

import (
	"context"
	"fmt"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/internal/service"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/configutil"
	oteltelemetry "hltvstats-backend/lib/telemetry"
	"hltvstats-backend/lib/util/serviceutil"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dbOverride string

	settings *configutil.Settings
	otel     oteltelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "hltvstats-cli",
	Short: "hltvstats-cli scrapes HLTV match results into a database and queries them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		settings, err = configutil.Load(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if dbOverride != "" {
			settings.Set("database.dsn", dbOverride)
		}

		otel, err = oteltelemetry.SetupFromSettings(cmd.Context(), "hltvstats-cli", settings)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otel.Shutdown(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The settings file, <name>.local.json5 is merged on top of it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "Overrides database.dsn (sqlite path, postgres:// or libsql:// url).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService opens the configured store, the returned func closes it.
func openService(ctx context.Context) (service.Service, func()) {
	tel := telemetry.SlogAPI{}
	st, err := store.OpenStore(ctx, settings.String("database.dsn", "file:hltv.db"), tel)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	svc, err := service.NewService(settings, st, tel)
	if err != nil {
		st.Close()
		serviceutil.Fatal("failed to initialize service", err)
	}
	return svc, func() {
		st.Close()
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func deref[T any](value *T) any {
	if value == nil {
		return ""
	}
	return *value
}
