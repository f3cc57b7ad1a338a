package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: "yml", want: FormatYAML},
		{input: "  yaml ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type item struct {
	ID   string `json:"id" yaml:"id"`
	Size int    `json:"size" yaml:"size"`
}

func TestPrint(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, item{ID: "abc", Size: 3}))
		assert.JSONEq(t, `{"id":"abc","size":3}`, buf.String())
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatYAML, item{ID: "abc", Size: 3}))
		assert.Equal(t, "id: abc\nsize: 3\n", buf.String())
	})

	t.Run("TableFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, item{ID: "abc"}))
		assert.Contains(t, buf.String(), `"id": "abc"`)
	})

	t.Run("Table", func(t *testing.T) {
		table := NewTable("NAME", "SIZE")
		table.AddRow("user", "12")
		table.AddRow("cart", "340")

		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, table))
		out := buf.String()
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "cart")
		assert.Contains(t, out, "340")
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		assert.Error(t, Print(&bytes.Buffer{}, Format("xml"), item{}))
	})
}

func TestPrintKeyValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValue(&buf, [][2]string{{"ID", "abc"}, {"Expired", "false"}}))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "abc")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ID")), bytes.Index(buf.Bytes(), []byte("Expired")))
}
