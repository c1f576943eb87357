package playback

import (
	"context"

	"github.com/osa030/noisebox/internal/domain/sound"
)

// Connection is an established session with a voice channel.
type Connection interface {
	Channel() Channel
}

// Provider opens, uses and closes voice channel connections.
// Join and Play block; the Manager calls them from its own goroutines.
type Provider interface {
	// Connection returns the live connection to the channel, if any.
	Connection(ch Channel) (Connection, bool)
	// Join establishes a connection to the channel.
	Join(ctx context.Context, ch Channel) (Connection, error)
	// Play sends the sound and returns once playback has ended.
	Play(ctx context.Context, conn Connection, s *sound.Sound) error
	// Leave tears down the connection to the channel.
	Leave(ctx context.Context, ch Channel) error
}
