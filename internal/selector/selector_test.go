package selector

import (
	"errors"
	"testing"

	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradebook() *models.Dataset {
	d := models.NewDataset("Sheet1", []string{"name", "id", "score", "comments", "notes"})
	d.AppendRow(models.Row{"name": models.TextValue("Ada"), "id": models.TextValue("A"), "score": models.NumberValue(90), "comments": models.TextValue("good")})
	d.AppendRow(models.Row{"name": models.TextValue("Bo"), "id": models.TextValue("B"), "score": models.NumberValue(70)})
	d.AppendRow(models.Row{"name": models.TextValue("Al"), "id": models.TextValue("a"), "score": models.NumberValue(55)})
	return d
}

func strPtr(s string) *string { return &s }

func TestSelect_columns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"alternation", "score|comments", []string{"id", "score", "comments"}},
		{"unanchored", "ore", []string{"id", "score"}},
		{"key matches too", "^(id|notes)$", []string{"id", "notes"}},
		{"matches nothing", "^zzz$", []string{"id"}},
		{"matches everything", ".*", []string{"name", "id", "score", "comments", "notes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Select(gradebook(), "id", tt.pattern, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Columns)
			assert.Equal(t, tt.want, sel.Data.Columns())
			assert.Equal(t, 3, sel.Data.Len())
		})
	}
}

func TestSelect_keyFilterDoesNotChangeColumns(t *testing.T) {
	all, err := Select(gradebook(), "id", "score", nil)
	require.NoError(t, err)
	one, err := Select(gradebook(), "id", "score", strPtr("B"))
	require.NoError(t, err)
	assert.Equal(t, all.Columns, one.Columns)
	require.Equal(t, 1, one.Data.Len())
	assert.Equal(t, "70", one.Data.Rows()[0].Get("score").String())
}

func TestSelect_keyFilterIsCaseSensitive(t *testing.T) {
	sel, err := Select(gradebook(), "id", "score", strPtr("a"))
	require.NoError(t, err)
	require.Equal(t, 1, sel.Data.Len())
	assert.Equal(t, "55", sel.Data.Rows()[0].Get("score").String())

	none, err := Select(gradebook(), "id", "score", strPtr("Z"))
	require.NoError(t, err)
	assert.Equal(t, 0, none.Data.Len())
}

func TestSelect_numericKeyFilter(t *testing.T) {
	d := models.NewDataset("s", []string{"team", "score"})
	d.AppendRow(models.Row{"team": models.NumberValue(7), "score": models.NumberValue(1)})
	d.AppendRow(models.Row{"team": models.NumberValue(8), "score": models.NumberValue(2)})
	sel, err := Select(d, "team", "score", strPtr("8"))
	require.NoError(t, err)
	require.Equal(t, 1, sel.Data.Len())
}

func TestSelect_projectsRows(t *testing.T) {
	sel, err := Select(gradebook(), "id", "score", nil)
	require.NoError(t, err)
	row := sel.Data.Rows()[0]
	assert.Len(t, row, 2)
	_, hasName := row["name"]
	assert.False(t, hasName)
}

func TestSelect_missingKeyAttribute(t *testing.T) {
	_, err := Select(gradebook(), "student", "score", nil)
	var notFound *models.KeyAttributeNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "student", notFound.Column)
}

func TestSelect_invalidPattern(t *testing.T) {
	_, err := Select(gradebook(), "id", "score(", nil)
	var invalid *models.PatternInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "score(", invalid.Pattern)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher("^comm")
	require.NoError(t, err)
	assert.True(t, m.Match("comments"))
	assert.False(t, m.Match("recommend"))
	assert.Equal(t, "^comm", m.String())
}
