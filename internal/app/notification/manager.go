// Package notification provides the notification manager for broadcasting playback events.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/app/playback"
)

const sendTimeout = 500 * time.Millisecond

// Notification is a playback event as delivered to subscribers.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Time       time.Time `json:"time"`
	Type       string    `json:"type"`
	GuildID    string    `json:"guild_id"`
	ChannelID  string    `json:"channel_id"`
	RequestID  string    `json:"request_id,omitempty"`
	SoundID    string    `json:"sound_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`

	// Set only on initial_state notifications
	Queues []QueueSummary `json:"queues,omitempty"`
}

// TypeInitialState is sent once to a new subscriber before any broadcast.
const TypeInitialState = "initial_state"

// QueueSummary is the state of one channel queue at subscription time.
type QueueSummary struct {
	GuildID    string `json:"guild_id"`
	ChannelID  string `json:"channel_id"`
	Pending    int    `json:"pending"`
	HeadSound  string `json:"head_sound,omitempty"`
	HeadStatus string `json:"head_status,omitempty"`
}

// InitialState builds the notification describing the current queues.
func InitialState(queues []playback.QueueSnapshot) *Notification {
	n := &Notification{
		Time:   time.Now(),
		Type:   TypeInitialState,
		Queues: make([]QueueSummary, 0, len(queues)),
	}
	for _, q := range queues {
		qs := QueueSummary{
			GuildID:   q.Channel.GuildID,
			ChannelID: q.Channel.ID,
			Pending:   len(q.Items),
		}
		if len(q.Items) > 0 {
			qs.HeadSound = q.Items[0].SoundID
			qs.HeadStatus = q.Items[0].Status.String()
		}
		n.Queues = append(n.Queues, qs)
	}
	return n
}

// FromEvent converts a playback event into a notification without a sequence number.
func FromEvent(e playback.Event) *Notification {
	n := &Notification{
		Time:      e.At,
		Type:      e.Type.String(),
		GuildID:   e.Channel.GuildID,
		ChannelID: e.Channel.ID,
		RequestID: e.RequestID,
		SoundID:   e.SoundID,
	}
	if e.RequestID != "" {
		n.Status = e.Status.String()
	}
	if e.Err != nil {
		n.Error = e.Err.Error()
	}
	return n
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		done:          make(chan struct{}),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s total=%d", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
	zlog.Debug().Msgf("notification: unsubscribed: id=%s total=%d", subscriptionID, len(m.subscriptions))
}

// NextSequenceNo reserves the next sequence number.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps the notification with the next sequence number and sends it to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Warn().Msgf("notification: send failed: id=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: send timed out: id=%s seq=%d", s.id, notification.SequenceNo)
			}
		}(sub)
	}

	wg.Wait()
}

// Pump broadcasts playback events until ctx is done or events is closed.
func (m *Manager) Pump(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(FromEvent(e))
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Done is closed when the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
