package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/veedy-dev/rockup/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func withSpinner(ctx context.Context, desc string) (stop func()) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				spinner.Finish()
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
	return func() {
		close(done)
		spinner.Finish()
	}
}

// downloadBar adapts a byte progress bar to transfer callbacks. The bar is
// created on the first event, once the total size is known.
func downloadBar(desc string) domain.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(p domain.Progress) {
		if bar == nil {
			bar = progressbar.DefaultBytes(p.Total, desc)
		}
		bar.Set64(p.Received)
	}
}

func formatSize(bytes int64) string {
	const (
		KB = 1 << 10
		MB = 1 << 20
		GB = 1 << 30
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// stderrLogger keeps component logs off stdout so command output stays
// scriptable. Debug and info lines appear only with --verbose.
type stderrLogger struct {
	verbose bool
}

func newLogger(verbose bool) domain.Logger {
	return &stderrLogger{verbose: verbose}
}

func (l *stderrLogger) Debug(msg string, keysAndValues ...any) {
	if l.verbose {
		l.log(dim("debug:"), msg, keysAndValues)
	}
}

func (l *stderrLogger) Info(msg string, keysAndValues ...any) {
	if l.verbose {
		l.log(cyan("info:"), msg, keysAndValues)
	}
}

func (l *stderrLogger) Warn(msg string, keysAndValues ...any) {
	l.log(yellow("warn:"), msg, keysAndValues)
}

func (l *stderrLogger) Error(msg string, keysAndValues ...any) {
	l.log(red("error:"), msg, keysAndValues)
}

func (l *stderrLogger) log(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(os.Stderr, b.String())
}
