// internal/report/report_test.go
package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/panelkeeper/internal/login"
)

var (
	shanghai = time.FixedZone("UTC+8", 8*60*60)
	runStart = time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
)

func sampleReport() *Report {
	r := New("run-1", runStart, shanghai)
	r.Add(Entry{
		Service:       "CT8",
		Username:      "alice",
		Host:          "panel.ct8.pl",
		At:            runStart.Add(5 * time.Second),
		Authenticated: true,
	})
	r.Add(Entry{
		Service:    "Serv00",
		Username:   "bob",
		Host:       "panel5.serv00.com",
		At:         runStart.Add(20 * time.Second),
		Reason:     login.KindCredentialsRejected,
		Diagnostic: filepath.Join("shots", "screenshot_Serv00_bob.png"),
	})
	r.Finished = runStart.Add(30 * time.Second)
	return r
}

func TestFormat(t *testing.T) {
	want := "📊 *Panel login status report*\n━━━━━━━━━━━━━━━━━━━━\n" +
		"\n" +
		"🔹 *Service*: `CT8`\n" +
		"👤 *Account*: `alice`\n" +
		"🕒 *Time*: 2026-03-01 10:00:05\n" +
		"✅ *Status*: _Login succeeded_\n" +
		"────────────────────\n" +
		"\n" +
		"🔹 *Service*: `Serv00`\n" +
		"👤 *Account*: `bob`\n" +
		"🕒 *Time*: 2026-03-01 10:00:20\n" +
		"❌ *Status*: _Login failed_\n" +
		"⚠️ *Reason*: Credentials rejected\n" +
		"🖼 Screenshot: `screenshot_Serv00_bob.png`\n" +
		"────────────────────\n" +
		"\n🏁 *All accounts processed*"

	if diff := cmp.Diff(want, sampleReport().Format()); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatEmpty(t *testing.T) {
	got := New("run-0", runStart, nil).Format()
	assert.Equal(t, header+trailer, got)
}

func TestCounts(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, shanghai, r.Location())
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "`bob` login failed, see screenshot", Caption("bob"))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset, "the default zone is UTC+8 with or without zoneinfo")

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown time zone "Not/AZone"`)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "Empty", text: "", limit: 10, want: nil},
		{name: "FitsInOne", text: "hello", limit: 10, want: []string{"hello"}},
		{name: "ExactMultiple", text: "abcdef", limit: 3, want: []string{"abc", "def"}},
		{name: "Remainder", text: "abcdefg", limit: 3, want: []string{"abc", "def", "g"}},
		{name: "CountsRunesNotBytes", text: "登录成功了", limit: 2, want: []string{"登录", "成功", "了"}},
		{name: "NoLimit", text: "abc", limit: 0, want: []string{"abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Chunk(tt.text, tt.limit)); diff != "" {
				t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkSegmentCount(t *testing.T) {
	text := sampleReport().Format()
	length := utf8.RuneCountInString(text)
	for _, limit := range []int{1, 7, 50, 3500, length, length + 1} {
		segments := Chunk(text, limit)
		assert.Len(t, segments, (length+limit-1)/limit, "limit %d", limit)
		assert.Equal(t, text, strings.Join(segments, ""))
		for _, s := range segments {
			assert.LessOrEqual(t, utf8.RuneCountInString(s), limit)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "# Panel login run")
	assert.Contains(t, out, "`run-1`")
	assert.Contains(t, out, "2026-03-01 10:00:30")
	assert.Contains(t, out, "✅ Authenticated")
	assert.Contains(t, out, "❌ Credentials rejected")
	assert.Contains(t, out, "`screenshot_Serv00_bob.png`")
	assert.Contains(t, out, "1 of 2 accounts failed to log in.")
}

func TestWriteMarkdownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.md")
	require.NoError(t, WriteMarkdownFile(path, New("run-2", runStart, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No accounts were processed.")
}
