package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter prints human-friendly job progress to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent int
	lastStage  string
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	dim        *color.Color
}

// NewTerminalReporter creates a terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

const labelWidth = 14

func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) JobAccepted(info JobAcceptedInfo) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Println("JOB")
	r.printLabel("ID:", info.JobID)
	r.printLabel("File:", info.DisplayName)
	if info.Attempt > 1 {
		r.printLabel("Attempt:", fmt.Sprintf("%d", info.Attempt))
	}

	r.mu.Lock()
	r.progress = progressbar.NewOptions(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	r.mu.Unlock()
}

func (r *TerminalReporter) Progress(update ProgressUpdate) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		fmt.Println()
		_, _ = r.cyan.Println(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}

	clamped := update.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}
	if r.progress != nil && clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set(clamped)
	}
	r.mu.Unlock()

	desc := update.Message
	if update.ETASeconds != nil {
		desc = fmt.Sprintf("%s (eta %ds)", desc, *update.ETASeconds)
	}
	r.mu.Lock()
	if r.progress != nil {
		r.progress.Describe(desc)
	}
	r.mu.Unlock()
}

func (r *TerminalReporter) Result(summary ResultSummary) {
	r.finishProgress()

	fmt.Println()
	_, _ = r.cyan.Println("RESULT")
	r.printLabel("Job:", summary.JobID)
	r.printLabel("Duration:", summary.Duration.String())
	r.printLabel("Chunks:", fmt.Sprintf("%d (%d placeholder)", summary.ChunkCount, summary.PlaceholderCount))
	r.printLabel("Concepts:", fmt.Sprintf("%d", summary.ConceptCount))
	r.printLabel("Practice:", fmt.Sprintf("%d", summary.PracticeCount))
	_, _ = r.green.Add(color.Bold).Println("  ✓ done")
}

func (r *TerminalReporter) Failed(failure JobFailure) {
	r.finishProgress()
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "FAILED %s\n", failure.JobID)
	_, _ = fmt.Fprintf(os.Stderr, "  class: %s\n", failure.Class)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", failure.Message)
	if failure.Retriable {
		_, _ = fmt.Fprintln(os.Stderr, "  will retry")
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}
