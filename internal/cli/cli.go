package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volley/internal/progress"
	"volley/internal/runner"
	"volley/internal/storage"
)

// Start runs a simulation headless: header, single-line progress, summary,
// history entry.
func Start(cfg runner.Config) error {
	printHeader(cfg)

	r := runner.NewRunner(cfg, runner.WithReporter(progress.NewPrinter(os.Stdout)))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sum, err := r.Run(ctx)
	fmt.Println()

	if err != nil && errors.Is(err, context.Canceled) {
		fmt.Println("\n⚠️  Interrupted, partial results below")
		err = nil
	}

	PrintSummary(r, sum)
	SaveHistory(cfg, sum)
	return err
}

func printHeader(cfg runner.Config) {
	payloads := len(cfg.Payloads)
	if payloads == 0 {
		payloads = 1
	}

	fmt.Printf("\n🚀 STARTING VOLLEY RUN\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target URL : %s\n", cfg.URL)
	fmt.Printf("Method     : %s\n", cfg.Method)
	fmt.Printf("Loops      : %d x %d payload(s) = %d requests\n", cfg.Loops, payloads, cfg.Loops*payloads)
	fmt.Printf("Pacing     : %s between requests\n", cfg.SleepTime)
	if cfg.Token != nil {
		fmt.Printf("Token      : refresh via %s\n", cfg.Token.Endpoint)
	}
	if len(cfg.Conditions) > 0 {
		fmt.Printf("Conditions : %d rule(s)\n", len(cfg.Conditions))
	}
	if cfg.SaveOutput {
		fmt.Printf("Save all   : %s\n", cfg.OutputFile)
	}
	fmt.Printf("======================================================================\n\n")
}

func PrintSummary(r *runner.Runner, sum *runner.Summary) {
	fmt.Printf("\n📊 RUN RESULTS\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Total Duration : %s\n", sum.Elapsed.Round(time.Millisecond))
	fmt.Printf("Attempts       : %d\n", sum.Attempts)
	fmt.Printf("Completed      : %d\n", sum.Completed)
	fmt.Printf("Failed         : %d\n", sum.Failed)
	if sum.Refreshes > 0 {
		fmt.Printf("Token Refresh  : %d\n", sum.Refreshes)
	}
	fmt.Printf("\n⏱️  RESPONSE TIMES (ms)\n")
	fmt.Printf("   Avg : %.2f\n", r.Stats.AvgMs())
	fmt.Printf("   P50 : %.2f\n", r.Stats.GetP50())
	fmt.Printf("   P90 : %.2f\n", r.Stats.GetP90())
	fmt.Printf("   P95 : %.2f\n", r.Stats.GetP95())
	fmt.Printf("   P99 : %.2f\n", r.Stats.GetP99())
	fmt.Printf("   Max : %d\n", r.Stats.Latency.Max()/1000)

	if sum.Failed > 0 || sum.OutputErrors > 0 {
		fmt.Printf("\n❌ FAILURE BREAKDOWN\n")
		if sum.TransportErrors > 0 {
			fmt.Printf("   %d x transport error\n", sum.TransportErrors)
		}
		if sum.AuthFailures > 0 {
			fmt.Printf("   %d x still unauthorized after retry\n", sum.AuthFailures)
		}
		if sum.RefreshFailures > 0 {
			fmt.Printf("   %d x token refresh failed\n", sum.RefreshFailures)
		}
		if sum.OutputErrors > 0 {
			fmt.Printf("   %d x output write failed\n", sum.OutputErrors)
		}
	}
	fmt.Printf("======================================================================\n")
}

func SaveHistory(cfg runner.Config, sum *runner.Summary) {
	store, err := storage.NewStore()
	if err != nil {
		fmt.Printf("⚠️  history unavailable: %v\n", err)
		return
	}
	defer store.Close()

	rec := storage.RunRecord{
		Timestamp: time.Now(),
		Method:    cfg.Method,
		URL:       cfg.URL,
		Loops:     cfg.Loops,
		Summary:   *sum,
	}
	if err := store.Save(rec); err != nil {
		fmt.Printf("⚠️  could not save history: %v\n", err)
	}
}
