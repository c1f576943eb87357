package sound

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrames(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		wantFrames [][]byte
		wantErr    bool
	}{
		{
			name:       "empty stream",
			input:      []byte{},
			wantFrames: [][]byte{},
		},
		{
			name:       "single frame",
			input:      []byte{0x03, 0x00, 'a', 'b', 'c'},
			wantFrames: [][]byte{[]byte("abc")},
		},
		{
			name:       "two frames",
			input:      []byte{0x01, 0x00, 'x', 0x02, 0x00, 'y', 'z'},
			wantFrames: [][]byte{[]byte("x"), []byte("yz")},
		},
		{
			name:    "truncated payload",
			input:   []byte{0x05, 0x00, 'a', 'b'},
			wantErr: true,
		},
		{
			name:    "truncated length",
			input:   []byte{0x01, 0x00, 'a', 0x02},
			wantErr: true,
		},
		{
			name:    "zero length",
			input:   []byte{0x00, 0x00},
			wantErr: true,
		},
		{
			name:    "negative length",
			input:   []byte{0xff, 0xff},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := ReadFrames(bytes.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrames, frames)
		})
	}
}

func TestReadFrames_InvalidLengthIsMarked(t *testing.T) {
	_, err := ReadFrames(bytes.NewReader([]byte{0x00, 0x00}))
	assert.True(t, errors.Is(err, ErrInvalidLength))
}

func TestWriteFrames_ReadBack(t *testing.T) {
	frames := [][]byte{[]byte("one"), []byte("two-two"), {0x00, 0x01}}

	var buf bytes.Buffer
	require.NoError(t, WriteFrames(&buf, frames))

	got, err := ReadFrames(&buf)
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestWriteFrames_RejectsEmptyFrame(t *testing.T) {
	err := WriteFrames(&bytes.Buffer{}, [][]byte{{}})
	assert.True(t, errors.Is(err, ErrInvalidLength))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "ostrich.dca")
		var buf bytes.Buffer
		require.NoError(t, WriteFrames(&buf, [][]byte{[]byte("frame")}))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		frames, err := LoadFile(path)
		require.NoError(t, err)
		assert.Len(t, frames, 1)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.dca")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := LoadFile(path)
		assert.True(t, errors.Is(err, ErrEmptyFile))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.dca"))
		assert.Error(t, err)
	})
}
