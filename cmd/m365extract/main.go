package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/config"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/graph"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/logging"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/output"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/runlog"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/ual"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/window"
)

var opts = config.Load()

var rootCmd = &cobra.Command{
	Use:   "m365extract",
	Short: "Extract unified audit log records from Microsoft 365",
	Long: `Extracts unified audit log records through the Graph security API for
forensic and incident-response work: submits an asynchronous search,
polls it to completion, follows continuation links through the result
set, and streams every page to disk.

The access token is read from M365_ACCESS_TOKEN (or --token); acquiring
one is left to your identity tooling.

Examples:
  # Everything from the last 90 days
  m365extract --name full-ual

  # Sign-in related operations for one user, as CSV
  m365extract --name suspect-user \
    --start 2026-06-01 --end 2026-07-01 \
    --user alice@contoso.com \
    --operation UserLoggedIn,UserLoginFailed \
    --format csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.SearchName, "name", "n", "", "search name, embedded in the output filename (required)")
	f.StringVar(&opts.StartDate, "start", "", "window start (RFC 3339 or YYYY-MM-DD, default now-90d)")
	f.StringVar(&opts.EndDate, "end", "", "window end (default now)")
	f.StringVar(&opts.Keyword, "keyword", "", "free-text keyword filter")
	f.StringVar(&opts.Service, "service", "", "service filter (e.g. Exchange, SharePoint)")
	f.StringSliceVar(&opts.RecordTypes, "record-type", nil, "record type filters")
	f.StringSliceVar(&opts.Operations, "operation", nil, "operation filters")
	f.StringSliceVar(&opts.UserPrincipalNames, "user", nil, "user principal name filters")
	f.StringSliceVar(&opts.IPAddresses, "ip", nil, "IP address filters")
	f.StringSliceVar(&opts.ObjectIDs, "object-id", nil, "object id filters")
	f.StringVarP(&opts.OutputDir, "output-dir", "o", opts.OutputDir, "directory for the output artifact")
	f.StringVar(&opts.Format, "format", opts.Format, "output format: json, jsonl or csv")
	f.StringVar(&opts.Encoding, "encoding", opts.Encoding, "output encoding: utf-8, utf-8-bom, utf-16le or latin1")
	f.BoolVar(&opts.Gzip, "gzip", false, "gzip-compress the output artifact")
	f.DurationVar(&opts.SettleInterval, "settle-interval", ual.DefaultSettleInterval, "wait after submission before the first poll")
	f.DurationVar(&opts.PollInterval, "poll-interval", ual.DefaultPollInterval, "wait between status polls")
	f.DurationVar(&opts.MaxWait, "max-wait", ual.DefaultMaxWait, "give up if the job has not succeeded after this long")
	f.StringVar(&opts.RunLogPath, "run-log", opts.RunLogPath, "SQLite run-history database (empty disables)")
	f.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&opts.LogJSON, "log-json", false, "emit logs as JSON")
	f.StringVar(&opts.Endpoint, "endpoint", opts.Endpoint, "Graph base URL override")
	f.StringVar(&opts.Token, "token", opts.Token, "bearer token (prefer M365_ACCESS_TOKEN)")
	rootCmd.MarkFlagRequired("name")
}

func run(ctx context.Context) error {
	logging.Init(logging.ParseLevel(opts.LogLevel), opts.LogJSON)

	if err := opts.Validate(); err != nil {
		return err
	}
	win, err := window.Resolve(opts.StartDate, opts.EndDate, time.Now().UTC())
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	path := output.Filename(opts.OutputDir, opts.SearchName, time.Now(), format, opts.Gzip)
	writerOpts := []output.Option{output.WithEncoding(opts.Encoding)}
	if opts.Gzip {
		writerOpts = append(writerOpts, output.WithGzip())
	}
	w, err := output.New(path, format, writerOpts...)
	if err != nil {
		return err
	}
	defer w.Close()

	gc := graph.New(opts.Endpoint, graph.StaticToken(opts.Token))

	filter := ual.QueryFilter{
		DisplayName:        opts.SearchName,
		Window:             win,
		Keyword:            opts.Keyword,
		Service:            opts.Service,
		RecordTypes:        opts.RecordTypes,
		Operations:         opts.Operations,
		UserPrincipalNames: opts.UserPrincipalNames,
		IPAddresses:        opts.IPAddresses,
		ObjectIDs:          opts.ObjectIDs,
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " waiting for audit query..."
	spin.Start()
	defer spin.Stop()

	poll := ual.Poller{
		SettleInterval: opts.SettleInterval,
		PollInterval:   opts.PollInterval,
		MaxWait:        opts.MaxWait,
		OnStatus: func(s ual.Status) {
			spin.Suffix = fmt.Sprintf(" audit query %s...", s)
		},
	}

	sum, err := ual.Run(ctx, gc, filter, w, poll)
	spin.Stop()
	if sum != nil {
		sum.OutputPath = path
		recordRun(ctx, sum)
	}
	if err != nil {
		if sum != nil && sum.TotalRecords > 0 {
			fmt.Fprintf(os.Stderr, "%s partial output: %d records in %s\n",
				color.YellowString("!"), sum.TotalRecords, path)
		}
		return err
	}

	closeErr := w.Close()
	if closeErr != nil {
		return closeErr
	}
	printSummary(sum)
	return nil
}

func recordRun(ctx context.Context, sum *ual.RunSummary) {
	if opts.RunLogPath == "" {
		return
	}
	store, err := runlog.Open(opts.RunLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s run log unavailable: %v\n", color.YellowString("!"), err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, sum); err != nil {
		fmt.Fprintf(os.Stderr, "%s run log write failed: %v\n", color.YellowString("!"), err)
	}
}

func printSummary(sum *ual.RunSummary) {
	if sum.NoResults() {
		fmt.Printf("%s no records matched search %s (id %s) — nothing written\n",
			color.CyanString("·"), sum.SearchName, sum.SearchID)
		fmt.Printf("  elapsed %s\n", sum.Duration)
		return
	}
	fmt.Printf("%s extraction complete\n", color.GreenString("✓"))
	fmt.Printf("  search    %s (id %s)\n", sum.SearchName, sum.SearchID)
	fmt.Printf("  records   %d across %d pages\n", sum.TotalRecords, sum.PageCount)
	fmt.Printf("  output    %s\n", sum.OutputPath)
	fmt.Printf("  elapsed   %s\n", sum.Duration)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(1)
	}
}
