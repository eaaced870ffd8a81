package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRoundTrip(t *testing.T) {
	exporter := NewCSVExporter()

	data := Dataset{
		Headers: []string{"name", "county", "notes"},
		Rows: []map[string]string{
			{"name": "Jane Doe", "county": "Marion", "notes": `He said, "hello"`},
			{"name": "John, Jr.", "county": "Hamilton", "notes": "line one\nline two"},
		},
	}

	payload, err := exporter.Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"name", "county", "notes"}, records[0])
	assert.Equal(t, `He said, "hello"`, records[1][2])
	assert.Equal(t, "John, Jr.", records[2][0])
	assert.Equal(t, "line one\nline two", records[2][2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
