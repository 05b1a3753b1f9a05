// researchctl submits a research query to the pipeline and waits for the
// cited report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/fathomlabs/orchestrator/internal/config"
	"github.com/fathomlabs/orchestrator/internal/temporal"
	"github.com/fathomlabs/orchestrator/internal/workflows"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "how long to wait for the run to finish")
	jsonOut := flag.Bool("json", false, "print the full result as JSON instead of the cited report")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: researchctl [flags] <research query>")
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	tClient, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   temporal.NewLogger(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer tClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runID := "research-" + uuid.NewString()
	run, err := tClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        runID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.ResearchWorkflow, workflows.ResearchInput{
		Query:                query,
		MaxConcurrentWorkers: cfg.Research.MaxConcurrentWorkers,
	})
	if err != nil {
		logger.Fatal("Failed to start research run", zap.Error(err))
	}

	logger.Info("Research run started", zap.String("run_id", runID))

	var out workflows.ResearchOutput
	if err := run.Get(ctx, &out); err != nil {
		logger.Fatal("Research run failed", zap.String("run_id", runID), zap.Error(err))
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Result); err != nil {
			logger.Fatal("Failed to encode result", zap.Error(err))
		}
		return
	}

	fmt.Println(out.Result.CitedReport)
	if len(out.Result.Bibliography) > 0 {
		fmt.Printf("\n%d bibliography entries, %v sources\n",
			len(out.Result.Bibliography), out.Result.Metadata["sources_count"])
	}
}
