// Package main provides the CLI entry point for coreorc.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/five82/coreorc"
	"github.com/five82/coreorc/internal/logging"
)

const (
	appName    = "coreorc"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "worker":
		err = runWorker(os.Args[2:])
	case "submit":
		err = runSubmit(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Long-form video analysis orchestrator

Usage:
  %s <command> [options]

Commands:
  worker    Run a worker loop leasing jobs from the queue
  submit    Enqueue a video file for analysis
  status    Report queue depth and a submitter's jobs
  version   Print version information
  help      Show this help message

Run '%s <command> --help' for command-specific options.
`, appName, appName, appName)
}

// workerArgs holds the parsed arguments for the worker command.
type workerArgs struct {
	queueURL     string
	logDir       string
	verbose      bool
	noLog        bool
	maxQueueSize int
	perCredCap   int
	chunkMinutes int
}

func runWorker(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Run a worker loop leasing jobs from the queue.

Usage:
  %s worker [options]

Options:
  -l, --log-dir <PATH>      Log directory (defaults to ~/.local/state/coreorc/logs)
  -v, --verbose             Enable verbose output for troubleshooting
  --queue-url <URL>         Durable queue store URL (defaults to $QUEUE_URL)
  --max-queue-size <N>      Bounded waiting-list capacity
  --per-cred-cap <N>        Per-credential in-flight request cap
  --chunk-minutes <N>       Target chunk length, in minutes
  --no-log                  Disable log file creation

Credentials are read from the CREDENTIALS environment variable, as a
comma-separated list.
`, appName)
	}

	var wa workerArgs
	fs.StringVar(&wa.queueURL, "queue-url", "", "Durable queue store URL")
	fs.StringVar(&wa.logDir, "l", "", "Log directory")
	fs.StringVar(&wa.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&wa.verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&wa.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&wa.noLog, "no-log", false, "Disable log file creation")
	fs.IntVar(&wa.maxQueueSize, "max-queue-size", 0, "Bounded waiting-list capacity")
	fs.IntVar(&wa.perCredCap, "per-cred-cap", 0, "Per-credential in-flight request cap")
	fs.IntVar(&wa.chunkMinutes, "chunk-minutes", 0, "Target chunk length, in minutes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return executeWorker(wa)
}

func executeWorker(wa workerArgs) error {
	logDir := wa.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}

	logger, err := logging.Setup(logDir, wa.verbose, wa.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	opts := []coreorc.Option{}
	if wa.queueURL != "" {
		opts = append(opts, coreorc.WithQueueURL(wa.queueURL))
	}
	if wa.maxQueueSize > 0 {
		opts = append(opts, coreorc.WithMaxQueueSize(wa.maxQueueSize))
	}
	if wa.perCredCap > 0 {
		opts = append(opts, coreorc.WithPerCredentialCap(wa.perCredCap))
	}
	if wa.chunkMinutes > 0 {
		opts = append(opts, coreorc.WithChunkSizeMinutes(wa.chunkMinutes))
	}
	if wa.verbose {
		opts = append(opts, coreorc.WithVerbose())
	}

	core, err := coreorc.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}
	defer func() { _ = core.Close() }()

	termRep := coreorc.NewTerminalReporterVerbose(wa.verbose)
	var rep coreorc.Reporter = termRep
	if logger != nil {
		logRep := coreorc.NewLogReporter(logger.Writer())
		rep = coreorc.NewCompositeReporter(termRep, logRep)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return core.RunWorker(ctx, rep, nil)
}

// submitArgs holds the parsed arguments for the submit command.
type submitArgs struct {
	inputPath   string
	modelID     string
	submitterID string
	queueURL    string
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Enqueue a video file for analysis.

Usage:
  %s submit [options]

Required:
  -i, --input <PATH>     Input video file

Options:
  --model <ID>            Analysis Service model ID (default "gemini-2.0-flash")
  --submitter <ID>         Submitter identifier, for per-submitter status
  --queue-url <URL>        Durable queue store URL (defaults to $QUEUE_URL)
`, appName)
	}

	var sa submitArgs
	fs.StringVar(&sa.inputPath, "i", "", "Input video file")
	fs.StringVar(&sa.inputPath, "input", "", "Input video file")
	fs.StringVar(&sa.modelID, "model", "gemini-2.0-flash", "Analysis Service model ID")
	fs.StringVar(&sa.submitterID, "submitter", "", "Submitter identifier")
	fs.StringVar(&sa.queueURL, "queue-url", "", "Durable queue store URL")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if sa.inputPath == "" {
		return fmt.Errorf("input path is required (-i/--input)")
	}

	return executeSubmit(sa)
}

func executeSubmit(sa submitArgs) error {
	inputPath, err := filepath.Abs(sa.inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}
	if info.IsDir() {
		return fmt.Errorf("input path must be a single file, got a directory: %s", inputPath)
	}

	var opts []coreorc.Option
	if sa.queueURL != "" {
		opts = append(opts, coreorc.WithQueueURL(sa.queueURL))
	}
	core, err := coreorc.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}
	defer func() { _ = core.Close() }()

	jobID, position, err := core.Submit(context.Background(), coreorc.SubmitRequest{
		SourcePath:  inputPath,
		DisplayName: filepath.Base(inputPath),
		MimeType:    mimeTypeFor(inputPath),
		SizeBytes:   info.Size(),
		ModelID:     sa.modelID,
		SubmitterID: sa.submitterID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Submitted job %s (position %d in queue)\n", jobID, position)
	return nil
}

// statusArgs holds the parsed arguments for the status command.
type statusArgs struct {
	submitterID string
	queueURL    string
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Report queue depth and a submitter's jobs.

Usage:
  %s status [options]

Options:
  --submitter <ID>     Report this submitter's active/waiting jobs
  --queue-url <URL>    Durable queue store URL (defaults to $QUEUE_URL)
`, appName)
	}

	var sa statusArgs
	fs.StringVar(&sa.submitterID, "submitter", "", "Submitter identifier")
	fs.StringVar(&sa.queueURL, "queue-url", "", "Durable queue store URL")

	if err := fs.Parse(args); err != nil {
		return err
	}
	return executeStatus(sa)
}

func executeStatus(sa statusArgs) error {
	var opts []coreorc.Option
	if sa.queueURL != "" {
		opts = append(opts, coreorc.WithQueueURL(sa.queueURL))
	}
	core, err := coreorc.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}
	defer func() { _ = core.Close() }()

	ctx := context.Background()
	stats, err := core.QueueStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch queue stats: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if sa.submitterID == "" {
		return enc.Encode(stats)
	}

	userStatus, err := core.Status(ctx, sa.submitterID)
	if err != nil {
		return fmt.Errorf("failed to fetch status for %s: %w", sa.submitterID, err)
	}
	return enc.Encode(userStatus)
}

func mimeTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
