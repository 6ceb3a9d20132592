// internal/report/markdown.go
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/nao1215/markdown"
)

// WriteMarkdown renders a run summary as a Markdown document.
func WriteMarkdown(w io.Writer, r *Report) error {
	md := markdown.NewMarkdown(w)

	md.H1("Panel login run")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + r.RunID + "`"},
			{"Started", r.Started.In(r.loc).Format(TimeLayout)},
			{"Finished", r.Finished.In(r.loc).Format(TimeLayout)},
			{"Accounts", strconv.Itoa(len(r.Entries))},
			{"Succeeded", strconv.Itoa(r.Succeeded())},
			{"Failed", strconv.Itoa(r.Failed())},
		},
	})
	md.PlainText("")

	md.H2("Accounts")
	md.PlainText("")
	if len(r.Entries) == 0 {
		md.PlainText("No accounts were processed.")
	} else {
		rows := make([][]string, 0, len(r.Entries))
		for _, e := range r.Entries {
			rows = append(rows, []string{
				e.Service,
				"`" + e.Username + "`",
				e.At.In(r.loc).Format(TimeLayout),
				statusText(e),
				screenshotText(e),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Service", "Account", "Time", "Status", "Screenshot"},
			Rows:   rows,
		})
	}

	if r.Failed() > 0 {
		md.PlainText("")
		md.Warningf("%d of %d accounts failed to log in.", r.Failed(), len(r.Entries))
	}

	return md.Build()
}

// WriteMarkdownFile writes the summary to path, creating parent directories.
func WriteMarkdownFile(path string, r *Report) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand summary path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	f, err := os.Create(expanded)
	if err != nil {
		return fmt.Errorf("failed to create summary file %s: %w", expanded, err)
	}
	if err := WriteMarkdown(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return f.Close()
}

func statusText(e Entry) string {
	if e.Authenticated {
		return "✅ Authenticated"
	}
	if e.Reason == "" {
		return "❌ Failed"
	}
	return "❌ " + e.Reason.Describe()
}

func screenshotText(e Entry) string {
	if e.Diagnostic == "" {
		return "-"
	}
	return "`" + filepath.Base(e.Diagnostic) + "`"
}
