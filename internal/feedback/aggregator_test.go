package feedback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestAggregate_lastWriteWins(t *testing.T) {
	dir := t.TempDir()
	first := writeSource(t, dir, "first.json", `{"header": "first header", "footer": "bye", "reassess": "resubmit"}`)
	second := writeSource(t, dir, "second.yaml", "header: second header\n")

	res := Aggregate([]string{first, second})
	assert.Empty(t, res.Skipped)
	assert.Equal(t, "second header", res.Text("header"))
	assert.Equal(t, "bye", res.Text("footer"))
	assert.Equal(t, "resubmit", res.Text("reassess"))

	reversed := Aggregate([]string{second, first})
	assert.Equal(t, "first header", reversed.Text("header"))
}

func TestAggregate_perKeyAccumulates(t *testing.T) {
	dir := t.TempDir()
	first := writeSource(t, dir, "first.yaml", `
per-key:
  A:
    late: two days late
    style: check naming
  B:
    late: one day late
`)
	second := writeSource(t, dir, "second.json", `{"per-key": {"A": {"late": "extension granted"}}}`)

	res := Aggregate([]string{first, second})
	require.Empty(t, res.Skipped)
	assert.Equal(t, []models.Fragment{
		{Label: "late", Text: "two days late"},
		{Label: "style", Text: "check naming"},
		{Label: "late", Text: "extension granted"},
	}, res.Fragments("A"))
	assert.Equal(t, []models.Fragment{{Label: "late", Text: "one day late"}}, res.Fragments("B"))
	assert.Nil(t, res.Fragments("C"))
	_, hasPerKeyLabel := res.Combined[models.PerKeyLabel]
	assert.False(t, hasPerKeyLabel)
}

func TestAggregate_documentOrderWithinSource(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "order.yaml", `
per-key:
  A:
    zulu: z
    alpha: a
    mike: m
`)
	res := Aggregate([]string{path})
	var labels []string
	for _, f := range res.Fragments("A") {
		labels = append(labels, f.Label)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, labels)
}

func TestAggregate_skipsInvalidSources(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "good.yaml", "header: kept\n")
	cases := map[string]string{
		"broken.json":   `{"header": `,
		"list.yaml":     "- header\n- footer\n",
		"nested.yaml":   "header:\n  text: nope\n",
		"empty.yaml":    "",
		"perkey.yaml":   "per-key: [A, B]\n",
		"duplicate.yml": "header: one\nheader: two\n",
	}
	paths := []string{good}
	for name, content := range cases {
		paths = append(paths, writeSource(t, dir, name, content))
	}
	missing := filepath.Join(dir, "missing.json")
	paths = append(paths, missing)

	res := Aggregate(paths)
	assert.Equal(t, "kept", res.Text("header"))
	require.Len(t, res.Skipped, len(cases)+1)
	skipped := make(map[string]bool)
	for _, s := range res.Skipped {
		skipped[filepath.Base(s.Path)] = true
		assert.NotEmpty(t, s.Reason)
	}
	for name := range cases {
		assert.True(t, skipped[name], "%s should be skipped", name)
	}
	assert.True(t, skipped["missing.json"])
}

func TestAggregate_invalidSourceContributesNothing(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "bad.yaml", "header: from bad\nfooter:\n  - not text\n")
	res := Aggregate([]string{bad})
	assert.Empty(t, res.Combined)
	require.Len(t, res.Skipped, 1)
}

func TestAggregate_scalars(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "scalars.yaml", `
points: 10
header: |
  ## Feedback
  Lab 3
footer:
per-key:
  42:
    bonus: yes
`)
	res := Aggregate([]string{path})
	require.Empty(t, res.Skipped)
	assert.Equal(t, "10", res.Text("points"))
	assert.Equal(t, "## Feedback\nLab 3", res.Text("header"))
	assert.Equal(t, "", res.Text("footer"))
	assert.Equal(t, []models.Fragment{{Label: "bonus", Text: "yes"}}, res.Fragments("42"))
}

func TestAggregate_jsonEscapes(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "escaped.json", `{"header": "see https:\/\/x.io", "footer": "caf\u00e9 \u00fcber café"}`)
	res := Aggregate([]string{path})
	require.Empty(t, res.Skipped)
	assert.Equal(t, "see https://x.io", res.Text("header"))
	assert.Equal(t, "café über café", res.Text("footer"))
}

func TestAggregate_jsonLayout(t *testing.T) {
	dir := t.TempDir()
	tabbed := writeSource(t, dir, "tabbed.json", "{\n\t\"header\": \"tabbed\",\n\t\"per-key\": {\n\t\t\"A\": {\"late\": \"yes\", \"points\": 7}\n\t}\n}\n")
	crlf := writeSource(t, dir, "crlf.json", "\xef\xbb\xbf{\r\n  \"footer\": \"bye\"\r\n}\r\n")
	res := Aggregate([]string{tabbed, crlf})
	require.Empty(t, res.Skipped)
	assert.Equal(t, "tabbed", res.Text("header"))
	assert.Equal(t, "bye", res.Text("footer"))
	assert.Equal(t, []models.Fragment{{Label: "late", Text: "yes"}, {Label: "points", Text: "7"}}, res.Fragments("A"))
}

func TestAggregate_jsonDuplicateLabel(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "dup.json", "{\n\"header\": \"one\",\n\"header\": \"two\"\n}")
	res := Aggregate([]string{path})
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Error(), "line 3")
	assert.Equal(t, "", res.Text("header"))
}

func TestAggregate_logsSkippedSources(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	agg := NewAggregator(WithLogger(zap.New(core)))
	agg.Aggregate([]string{filepath.Join(t.TempDir(), "absent.json")})
	assert.Equal(t, 1, logs.FilterMessage("feedback source skipped").Len())
}

func TestResult_nilSafe(t *testing.T) {
	var r *Result
	assert.Equal(t, "", r.Text("header"))
	assert.Nil(t, r.Fragments("A"))
}
