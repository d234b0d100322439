package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"volley/internal/banner"
	"volley/internal/cli"
	"volley/internal/config"
	"volley/internal/progress"
	"volley/internal/runner"
	"volley/internal/storage"
	"volley/internal/target"
	"volley/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	cfgFile string

	// CLI flags, overriding the config file
	url        string
	method     string
	headers    []string
	loops      int
	sleepTime  float64
	insecure   bool
	appendLogs bool
	saveOutput bool
	outputFile string
	useTUI     bool
)

var rootCmd = &cobra.Command{
	Use:   "volley",
	Short: "Volley - Mass HTTP Request Simulator",
	Long: `
Volley repeats a request (or a list of payload-bearing requests) against an
endpoint: paced iterations, transparent OAuth2-style token refresh, response
classification into per-condition output files, and a run summary with
latency percentiles.

Conditions, payloads and token settings live in a YAML config file; common
scalars can be overridden with flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return err
		}
		rc, err := cfg.ToRunner()
		if err != nil {
			return err
		}

		if useTUI {
			return runTUI(rc)
		}
		return cli.Start(rc)
	},
}

func Execute() {
	// Custom help with banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.Flags().StringVarP(&url, "url", "u", "", "Target URL")
	rootCmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP Method")
	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "HTTP Header (e.g. \"Key: Value\")")
	rootCmd.Flags().IntVarP(&loops, "loops", "l", 1, "Number of passes over the payload list")
	rootCmd.Flags().Float64VarP(&sleepTime, "sleep", "s", 0, "Delay between requests in seconds")
	rootCmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "Skip SSL certificate verification")
	rootCmd.Flags().BoolVarP(&appendLogs, "append", "a", false, "Append to existing output files instead of overwriting")
	rootCmd.Flags().BoolVar(&saveOutput, "save-output", false, "Save every response to the output file")
	rootCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output file for --save-output")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "Show a live progress view")
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("url") {
		cfg.URL = url
	}
	if cmd.Flags().Changed("method") {
		cfg.Method = method
	}
	if cmd.Flags().Changed("loops") {
		cfg.Loops = loops
	}
	if cmd.Flags().Changed("sleep") {
		cfg.SleepTime = sleepTime
	}
	if cmd.Flags().Changed("insecure") {
		cfg.VerifySSL = !insecure
	}
	if cmd.Flags().Changed("append") {
		cfg.AppendLogs = appendLogs
	}
	if cmd.Flags().Changed("save-output") {
		cfg.SaveOutput = saveOutput
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputFile = outputFile
		cfg.SaveOutput = true
	}
	if len(headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for _, h := range headers {
			parts := strings.SplitN(h, ":", 2)
			if len(parts) == 2 {
				cfg.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}
}

func runTUI(rc runner.Config) error {
	updates := progress.NewChannel(100)
	r := runner.NewRunner(rc, runner.WithReporter(updates))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := tui.NewModel(r, updates.C)
	p := tea.NewProgram(m)

	go func() {
		sum, err := r.Run(ctx)
		p.Send(tui.DoneMsg{Summary: sum, Err: err})
	}()

	final, err := p.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("running live view: %w", err)
	}

	if fm, ok := final.(tui.Model); ok && fm.Summary != nil {
		cli.PrintSummary(r, fm.Summary)
		cli.SaveHistory(rc, fm.Summary)
	}
	return nil
}

// --- Practice target subcommand ---

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Run the built-in practice target server",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		target.Start(target.ServerConfig{Port: port})
		select {}
	},
}

// --- History subcommand ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items := store.List()
		if len(items) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}

		for _, rec := range items {
			fmt.Printf("%s  %s  %s %s  attempts=%d ok=%d err=%d  (%s)\n",
				rec.ID[:8],
				rec.Timestamp.Format(time.DateTime),
				rec.Method, rec.URL,
				rec.Summary.Attempts, rec.Summary.Completed, rec.Summary.Failed,
				rec.Summary.Elapsed.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	targetCmd.Flags().IntP("port", "p", 8080, "Port to run the practice target on")
	historyCmd.Flags().IntP("limit", "n", 20, "Show at most this many runs")
}
