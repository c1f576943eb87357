package sound

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrEmptyFile     = errors.New("sound file contains no frames")
	ErrInvalidLength = errors.New("invalid frame length")
)

// ReadFrames reads length-prefixed opus frames ([int16 LE length][payload]) until EOF.
// EOF on a frame boundary ends the stream; a truncated frame is an error.
func ReadFrames(r io.Reader) ([][]byte, error) {
	frames := make([][]byte, 0, 64)
	for {
		var length int16
		err := binary.Read(r, binary.LittleEndian, &length)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read length of frame %d", len(frames))
		}
		if length <= 0 {
			return nil, errors.Wrapf(ErrInvalidLength, "frame %d has length %d", len(frames), length)
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, errors.Wrapf(err, "failed to read frame %d (%d bytes)", len(frames), length)
		}
		frames = append(frames, frame)
	}
}

// WriteFrames writes frames in the format read by ReadFrames.
func WriteFrames(w io.Writer, frames [][]byte) error {
	for i, f := range frames {
		if len(f) == 0 || len(f) > 1<<15-1 {
			return errors.Wrapf(ErrInvalidLength, "frame %d has length %d", i, len(f))
		}
		if err := binary.Write(w, binary.LittleEndian, int16(len(f))); err != nil {
			return errors.Wrapf(err, "failed to write length of frame %d", i)
		}
		if _, err := w.Write(f); err != nil {
			return errors.Wrapf(err, "failed to write frame %d", i)
		}
	}
	return nil
}

// LoadFile reads all frames of a sound file. A file without frames is an error.
func LoadFile(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sound file")
	}
	defer f.Close()

	frames, err := ReadFrames(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	if len(frames) == 0 {
		return nil, errors.Wrapf(ErrEmptyFile, "%s", path)
	}
	return frames, nil
}
