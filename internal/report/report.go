// internal/report/report.go
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xkilldash9x/panelkeeper/internal/login"
)

const (
	header    = "📊 *Panel login status report*\n━━━━━━━━━━━━━━━━━━━━\n"
	separator = "────────────────────\n"
	trailer   = "\n🏁 *All accounts processed*"

	// TimeLayout is used for every timestamp shown to the operator.
	TimeLayout = "2006-01-02 15:04:05"

	// DefaultTimezone is the zone report timestamps are rendered in.
	DefaultTimezone = "Asia/Shanghai"
)

// Entry is one account's line in the report.
type Entry struct {
	Service       string
	Username      string
	Host          string
	At            time.Time
	Authenticated bool
	Reason        login.Kind
	// Diagnostic is the screenshot path, empty when none was kept.
	Diagnostic string
}

// Report collects entries in processing order.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Entries  []Entry

	loc *time.Location
}

// New starts an empty report whose timestamps render in loc.
func New(runID string, started time.Time, loc *time.Location) *Report {
	if loc == nil {
		loc = time.UTC
	}
	return &Report{RunID: runID, Started: started, loc: loc}
}

// Add appends an entry.
func (r *Report) Add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Succeeded counts authenticated entries.
func (r *Report) Succeeded() int {
	n := 0
	for _, e := range r.Entries {
		if e.Authenticated {
			n++
		}
	}
	return n
}

// Failed counts entries that did not authenticate.
func (r *Report) Failed() int {
	return len(r.Entries) - r.Succeeded()
}

// Location returns the zone timestamps are rendered in.
func (r *Report) Location() *time.Location { return r.loc }

// Format renders the report as Telegram Markdown.
func (r *Report) Format() string {
	parts := make([]string, 0, len(r.Entries)+1)
	parts = append(parts, header)
	for _, e := range r.Entries {
		parts = append(parts, r.formatEntry(e))
	}
	return strings.Join(parts, "\n") + trailer
}

func (r *Report) formatEntry(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔹 *Service*: `%s`\n", e.Service)
	fmt.Fprintf(&b, "👤 *Account*: `%s`\n", e.Username)
	fmt.Fprintf(&b, "🕒 *Time*: %s\n", e.At.In(r.loc).Format(TimeLayout))
	if e.Authenticated {
		b.WriteString("✅ *Status*: _Login succeeded_\n")
	} else {
		b.WriteString("❌ *Status*: _Login failed_\n")
		if e.Reason != "" {
			fmt.Fprintf(&b, "⚠️ *Reason*: %s\n", e.Reason.Describe())
		}
	}
	if e.Diagnostic != "" {
		fmt.Fprintf(&b, "🖼 Screenshot: `%s`\n", filepath.Base(e.Diagnostic))
	}
	b.WriteString(separator)
	return b.String()
}

// Caption is the short text sent with a failure screenshot.
func Caption(username string) string {
	return fmt.Sprintf("`%s` login failed, see screenshot", username)
}

// LoadLocation resolves a zone name; an empty name selects DefaultTimezone. Only the
// default zone falls back to a fixed UTC+8 offset when zoneinfo is unavailable. Any other
// unknown name is an error.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimezone {
		return time.FixedZone("UTC+8", 8*60*60), nil
	}
	return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
}

// Chunk splits text into consecutive segments of at most limit runes. A text of L runes
// yields ceil(L/limit) segments whose concatenation is text.
func Chunk(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	segments := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
