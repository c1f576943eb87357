// Package playback provides per-channel playback queues for voice channels.
package playback

// Status represents the lifecycle status of a playback request.
type Status int

const (
	StatusWaiting    Status = iota // Queued, no connection acquired yet
	StatusConnecting               // Join in flight or connection acquired
	StatusPlaying                  // Audio is being sent
	StatusFinished                 // Playback ended or request abandoned
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusConnecting:
		return "connecting"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}
