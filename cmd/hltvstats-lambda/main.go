package main

import (
	"context"
	"fmt"
	"hltvstats-backend/internal/components/telemetry"
	"hltvstats-backend/internal/pipeline"
	"hltvstats-backend/internal/service"
	"hltvstats-backend/internal/store"
	"hltvstats-backend/lib/configutil"
	oteltelemetry "hltvstats-backend/lib/telemetry"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
)

func init() {
	telemetry.InitSlog(false)
}

// handler runs a single scrape pass per invocation, it is meant to be
// triggered by a scheduled event.
func handler(ctx context.Context) (pipeline.Stats, error) {
	settings, err := configutil.Load(os.Getenv("HLTVSTATS_CONFIG"))
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("load settings: %w", err)
	}
	// the function filesystem is read-only outside of /tmp
	settings.Set("browser.headless", true)

	otel, err := oteltelemetry.SetupFromSettings(ctx, "hltvstats-lambda", settings)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("setup telemetry: %w", err)
	}
	defer otel.Shutdown(context.Background())

	tel := telemetry.SlogAPI{}
	st, err := store.OpenStore(ctx, settings.String("database.dsn", ""), tel)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc, err := service.NewService(settings, st, tel)
	if err != nil {
		return pipeline.Stats{}, err
	}
	return svc.Scrape(ctx)
}

func main() { lambda.Start(handler) }
