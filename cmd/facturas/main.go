package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/zombor/facturas/internal/batch"
	"github.com/zombor/facturas/internal/invoice"
	"github.com/zombor/facturas/internal/logging"
	"github.com/zombor/facturas/internal/report"
	"github.com/zombor/facturas/internal/scanning"
	"github.com/zombor/facturas/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitNoFiles = 2
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(exitOK)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := loadEnvFile(args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	cfg, err := parseConfig(args)
	if errors.Is(err, errHelp) {
		fmt.Fprintln(stderr, strings.TrimPrefix(err.Error(), errHelp.Error()+"\n"))
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	logger := logging.New(stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize database
	db, err := batch.NewBoltDB(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database", "path", cfg.DBPath, "error", err)
		return exitFailure
	}
	defer db.Close()

	if cfg.History {
		if err := printHistory(stdout, db); err != nil {
			logger.Error("Failed to list runs", "error", err)
			return exitFailure
		}
		return exitOK
	}

	scanner, err := newScanner(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize scanner", "provider", cfg.Provider, "error", err)
		return exitFailure
	}
	defer scanner.Close()

	extractor := scanning.NewExtractor(scanning.NewFitzRenderer(cfg.DPI), scanner, logger)
	runner := batch.NewRunner(extractor, cfg.Pause, logger)
	writer := report.NewWriter(cfg.OutputDir, logger)
	service := batch.NewService(runner, writer, db, logger)

	if cfg.Serve {
		return serve(ctx, cfg, service, logger)
	}
	return process(ctx, cfg, service, stdout, stderr, logger)
}

func newScanner(ctx context.Context, cfg *config, logger *slog.Logger) (scanning.Scanner, error) {
	switch cfg.Provider {
	case providerGemini:
		logger.Info("Initializing Gemini scanner...", "model", cfg.Model)
		return scanning.NewGemini(ctx, cfg.APIKey, cfg.Model)
	default:
		logger.Info("Initializing OpenAI scanner...", "model", cfg.Model, "base_url", cfg.BaseURL)
		return scanning.NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	}
}

func serve(ctx context.Context, cfg *config, service *batch.Service, logger *slog.Logger) int {
	store, err := server.NewLocalStorage(cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		return exitFailure
	}

	basicAuth := server.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}
	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		logger.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	srv := server.NewServer(service, store, basicAuth, logger)
	if err := srv.Start(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Error("Server error", "error", err)
		return exitFailure
	}
	return exitOK
}

func process(ctx context.Context, cfg *config, service *batch.Service, stdout, stderr io.Writer, logger *slog.Logger) int {
	queue, err := buildQueue(cfg.Inputs)
	if err != nil {
		logger.Error("Failed to read input folder", "error", err)
		return exitFailure
	}

	run, err := service.Process(ctx, queue, newConsoleProgress(stderr))
	switch {
	case errors.Is(err, batch.ErrEmptyQueue):
		fmt.Fprintln(stderr, "warning: no PDF files selected")
		return exitNoFiles
	case errors.Is(err, batch.ErrAllFailed):
		fmt.Fprintln(stderr, "error: no invoice could be extracted")
		printFailures(stderr, run.Failures)
		return exitFailure
	case err != nil:
		logger.Error("Run failed", "error", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Report saved to %s\n\n%s\n", run.ReportPath, run.Summary())
	printFailures(stderr, run.Failures)
	return exitOK
}

// buildQueue selects every PDF under the folders and each named PDF file
func buildQueue(inputs []string) (*invoice.Queue, error) {
	queue := invoice.NewQueue()
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			queue.AddFiles(input)
			continue
		}

		folder := invoice.NewQueue()
		if _, err := folder.SelectFolder(input); err != nil {
			return nil, fmt.Errorf("selecting folder %s: %w", input, err)
		}
		queue.AddFiles(folder.Paths()...)
	}
	return queue, nil
}

func printFailures(w io.Writer, failures []batch.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "failed: %s (%s): %s\n", f.Path, f.Reason, f.Error)
	}
}

func printHistory(w io.Writer, db batch.DB) error {
	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPROCESSED\tWITH ERRORS\tFAILED\tTOTAL\tREPORT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			r.Processed,
			r.WithMissing,
			r.Failed,
			invoice.FormatAmount(r.Total),
			r.ReportPath,
		)
	}
	return tw.Flush()
}
