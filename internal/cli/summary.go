package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var (
	titleColor = color.New(color.FgHiCyan, color.Bold)
	okColor    = color.New(color.FgHiGreen)
	warnColor  = color.New(color.FgHiYellow)
	failColor  = color.New(color.FgHiRed)
	fieldColor = color.New(color.FgHiMagenta)
)

// printSummary writes a human-readable report of res to w.
func printSummary(w io.Writer, res *crawlResult) {
	s := res.Stats

	titleColor.Fprintf(w, "\ndocwalk run %s\n", res.RunID)
	field(w, "roots", fmt.Sprint(len(res.Roots)))
	field(w, "output", res.Output)
	if res.StoreBytes >= 0 {
		field(w, "store", fmt.Sprintf("%d bytes", res.StoreBytes))
	}
	field(w, "elapsed", res.Elapsed.Round(time.Millisecond).String())

	okColor.Fprintf(w, "  %d records", s.Records())
	fmt.Fprintf(w, " (%d documents, %d spreadsheets)\n", s.Documents, s.Spreadsheets)
	if res.Dropped > 0 {
		warnColor.Fprintf(w, "  %d duplicate records dropped\n", res.Dropped)
	}
	fmt.Fprintf(w, "  %d unsupported entries skipped\n", s.Unsupported)

	if s.TotalFailures() == 0 {
		okColor.Fprintln(w, "  no failures")
		return
	}
	failColor.Fprintf(w, "  %d failures\n", s.TotalFailures())
	for _, kind := range s.FailureKinds() {
		fmt.Fprintf(w, "    %s: %d\n", kind, s.Failures[kind])
	}
}

func field(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %s %s\n", fieldColor.Sprintf("%-8s", name+":"), value)
}
