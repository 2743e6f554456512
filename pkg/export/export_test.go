package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Applications",
		Columns: []Column{
			{Key: "id", Header: "ID"},
			{Key: "status", Header: "Status"},
			{Key: "cover", Header: "Cover letter", Width: 3},
		},
		Rows: []map[string]string{
			{"id": "a1", "status": "accepted", "cover": "=HYPERLINK(\"x\")"},
			{"id": "a2", "status": "pending"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	r, err := RendererFor(FormatCSV)
	require.NoError(t, err)
	out, err := r.Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "ID,Status,Cover letter\na1,accepted,\"'=HYPERLINK(\"\"x\"\")\"\na2,pending,\n", string(out))
	assert.Equal(t, "csv", r.Extension())
}

func TestPDFRender(t *testing.T) {
	r, err := RendererFor("PDF")
	require.NoError(t, err)
	out, err := r.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := CSVRenderer{}.Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoColumns)
	_, err = RendererFor("xlsx")
	assert.Error(t, err)
}

func TestColumnWidthsSumToPage(t *testing.T) {
	w := columnWidths(sampleDataset().Columns)
	assert.InDelta(t, pageContentWidth, w[0]+w[1]+w[2], 0.001)
	assert.InDelta(t, w[0]*3, w[2], 0.001)
}
