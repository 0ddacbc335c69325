package export

import (
	"bytes"
	"testing"

	"studiobook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteOverview(t *testing.T) {
	hours := map[string][]string{
		"2026-01-05 15:00": {"ana"},
		"2026-01-05 14:00": {"ana", "bob", "ghost"},
	}
	engineers := []models.Resource{
		{ID: "ana", Name: "Ana"},
		{ID: "bob", Name: "Bob/Drums"},
		{ID: "carl", Name: "Carl"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOverview(&buf, hours, engineers))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Overview", "Ana", "Bob-Drums", "Carl", "ghost"}, f.GetSheetList())

	rows, err := f.GetRows("Overview")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Hour", "Engineers free", "Level", "Engineers"}, rows[0])
	assert.Equal(t, []string{"2026-01-05", "14:00", "3", "high", "Ana, Bob/Drums, ghost"}, rows[1])
	assert.Equal(t, []string{"2026-01-05", "15:00", "1", "low", "Ana"}, rows[2])

	anaRows, err := f.GetRows("Ana")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "Hour"}, {"2026-01-05", "14:00"}, {"2026-01-05", "15:00"}}, anaRows)

	carlRows, err := f.GetRows("Carl")
	require.NoError(t, err)
	assert.Len(t, carlRows, 1)
}

func TestWriteOverview_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOverview(&buf, map[string][]string{}, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Overview"}, f.GetSheetList())
}

func TestSheetWriter_UniqueNames(t *testing.T) {
	w, err := newSheetWriter()
	require.NoError(t, err)
	defer w.close()

	assert.Equal(t, "Ana", w.uniqueName("Ana"))
	assert.Equal(t, "ana (2)", w.uniqueName("ana"))
	long := w.uniqueName("An extremely long engineer name that overflows")
	assert.LessOrEqual(t, len([]rune(long)), maxSheetName)
	assert.Equal(t, "Sheet", w.uniqueName("?*"))
}
