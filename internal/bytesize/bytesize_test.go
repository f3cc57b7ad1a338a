package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"1024", 1024, false},
		{"4KiB", 4 * KiB, false},
		{"4Ki", 4 * KiB, false},
		{"4 KB", 4 * KB, false},
		{"1.5MiB", 1536 * KiB, false},
		{"2GiB", 2 * GiB, false},
		{"100mb", 100 * MB, false},
		{"", 0, true},
		{"  ", 0, true},
		{"abc", 0, true},
		{"10 parsecs", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, size := range []ByteSize{0, 512, 64 * KiB, 3 * GiB} {
		text, err := size.MarshalText()
		require.NoError(t, err)

		var got ByteSize
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, size, got, "round trip of %q", text)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "64 KiB", (64 * KiB).String())
	assert.Equal(t, "512 B", ByteSize(512).String())
}
