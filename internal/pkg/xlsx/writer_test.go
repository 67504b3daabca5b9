package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriter_RoundTrip(t *testing.T) {
	w := NewWriter()
	defer w.Close()

	require.Error(t, w.WriteRow([]any{"x"}))

	require.NoError(t, w.AddSheet("Reservations"))
	require.NoError(t, w.WriteHeader([]string{"ID", "Resource"}))
	require.NoError(t, w.WriteRow([]any{1, "Lab 1"}))
	require.NoError(t, w.WriteRow([]any{2, "Sala 3"}))
	require.NoError(t, w.SetColumnWidths(8, 24))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reservations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Resource"}, rows[0])
	assert.Equal(t, []string{"2", "Sala 3"}, rows[2])
}

func TestWriter_LongSheetName(t *testing.T) {
	w := NewWriter()
	defer w.Close()

	require.NoError(t, w.AddSheet("a sheet name that is much longer than excel allows"))
	assert.Len(t, w.sheet, 31)
}
