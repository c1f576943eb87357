package playback

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/noisebox/internal/domain/sound"
)

// Channel identifies a voice channel.
type Channel struct {
	GuildID string
	ID      string
}

// String returns "guild/channel".
func (c Channel) String() string {
	return fmt.Sprintf("%s/%s", c.GuildID, c.ID)
}

// Request is one queued instance of "play this sound in this channel".
// Fields are guarded by the owning queue's mutex.
type Request struct {
	ID         string
	Sound      *sound.Sound
	Channel    Channel
	Status     Status
	Conn       Connection // Non-owning; nil until acquired
	EnqueuedAt time.Time

	Abandoned bool  // Finished without playing
	Err       error // Why the request was abandoned
}

func newRequest(ch Channel, s *sound.Sound) *Request {
	return &Request{
		ID:         uuid.New().String(),
		Sound:      s,
		Channel:    ch,
		Status:     StatusWaiting,
		EnqueuedAt: time.Now(),
	}
}

// advance moves the request to the next status. Only single forward steps are allowed.
func (r *Request) advance(next Status) bool {
	if r.Status >= StatusFinished || next != r.Status+1 {
		return false
	}
	r.Status = next
	return true
}

// abandon finishes a request that never reached Playing.
func (r *Request) abandon(err error) bool {
	if r.Status != StatusWaiting && r.Status != StatusConnecting {
		return false
	}
	r.Status = StatusFinished
	r.Abandoned = true
	r.Err = err
	return true
}

func (r *Request) soundID() string {
	if r.Sound == nil {
		return ""
	}
	return r.Sound.ID
}
