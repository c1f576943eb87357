package sound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_NormalizesKeywords(t *testing.T) {
	s := New("OSTRICH", "res/ostrich.dca", []string{"HaHa", " ostrich ", "", "haha!"}, nil)

	assert.Equal(t, []string{"haha", "ostrich", "haha!"}, s.Keywords)
}

func TestSound_Matches(t *testing.T) {
	s := New("OSTRICH", "res/ostrich.dca", []string{"haha", "ostrich", "haha!"}, nil)

	tests := []struct {
		token string
		want  bool
	}{
		{token: "haha", want: true},
		{token: "HAHA!", want: true},
		{token: "ostrich", want: true},
		{token: "hah", want: false},
		{token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Matches(tt.token))
		})
	}
}

func TestSound_DurationAndSize(t *testing.T) {
	s := New("X", "x.dca", nil, [][]byte{make([]byte, 10), make([]byte, 20), make([]byte, 30)})

	assert.Equal(t, 60*time.Millisecond, s.Duration())
	assert.Equal(t, uint64(60), s.Size())
}

func TestSound_WithFrames(t *testing.T) {
	s := New("X", "x.dca", []string{"x"}, [][]byte{[]byte("a")})
	reloaded := s.WithFrames([][]byte{[]byte("b"), []byte("c")})

	assert.Len(t, s.Frames, 1, "source sound must be untouched")
	assert.Len(t, reloaded.Frames, 2)
	assert.Equal(t, s.ID, reloaded.ID)
	assert.Equal(t, s.Keywords, reloaded.Keywords)
}
