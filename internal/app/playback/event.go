package playback

import "time"

// EventType represents a playback event type.
type EventType int

const (
	EventRequestQueued     EventType = iota // Request appended to a channel queue
	EventJoinRequested                      // Join issued for the head request
	EventConnectionReused                   // Head request reused a live connection
	EventJoined                             // Join completed
	EventPlaybackStarted                    // Audio started for the head request
	EventPlaybackFinished                   // Ended signal received for the head request
	EventRequestAbandoned                   // Join failed, request dropped without playing
	EventChannelReleased                    // Queue drained, connection left
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventRequestQueued:
		return "request_queued"
	case EventJoinRequested:
		return "join_requested"
	case EventConnectionReused:
		return "connection_reused"
	case EventJoined:
		return "joined"
	case EventPlaybackStarted:
		return "playback_started"
	case EventPlaybackFinished:
		return "playback_finished"
	case EventRequestAbandoned:
		return "request_abandoned"
	case EventChannelReleased:
		return "channel_released"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	Channel   Channel
	RequestID string // Empty for channel-level events
	SoundID   string
	Status    Status
	Err       error // Set for EventRequestAbandoned
	At        time.Time
}
