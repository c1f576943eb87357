package connect

import (
	"time"
)

// Admin service procedure names.
const (
	AdminServiceName        = "noisebox.admin.v1.AdminService"
	GetStatusProcedure      = "/" + AdminServiceName + "/GetStatus"
	AdvanceAllProcedure     = "/" + AdminServiceName + "/AdvanceAll"
	WatchEventsProcedure    = "/" + AdminServiceName + "/WatchEvents"
	adminServicePathPattern = "/" + AdminServiceName + "/"
)

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Queues      []QueueStatus `json:"queues"`
	Sounds      []SoundInfo   `json:"sounds"`
	Subscribers int           `json:"subscribers"`
}

// QueueStatus is one channel's pending requests, head first.
type QueueStatus struct {
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	Items     []QueueItem `json:"items"`
}

type QueueItem struct {
	RequestID  string    `json:"request_id"`
	SoundID    string    `json:"sound_id"`
	Status     string    `json:"status"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type SoundInfo struct {
	ID         string   `json:"id"`
	Keywords   []string `json:"keywords"`
	Frames     int      `json:"frames"`
	DurationMS int64    `json:"duration_ms"`
	SizeBytes  uint64   `json:"size_bytes"`
}

type AdvanceAllRequest struct{}

type AdvanceAllResponse struct {
	Queues int `json:"queues"`
}

type WatchEventsRequest struct{}
