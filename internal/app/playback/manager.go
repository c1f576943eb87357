package playback

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/domain/sound"
)

// Errors
var (
	ErrManagerClosed = errors.New("playback manager is closed")
	ErrJoinFailed    = errors.New("failed to join voice channel")
)

// Config holds manager configuration.
type Config struct {
	JoinTimeout  time.Duration // 0 disables the join timeout
	PlayTimeout  time.Duration // 0 disables the playback timeout
	LeaveTimeout time.Duration // Timeout for leaving a drained channel
	EventBuffer  int           // Capacity of the events channel
}

// channelQueue holds the pending requests of one channel.
type channelQueue struct {
	mu      sync.Mutex
	channel Channel
	items   []*Request
	removed bool // Dropped from the registry; a new queue must be created
}

// Manager owns one FIFO queue per voice channel and drives each queue head
// through Waiting -> Connecting -> Playing -> Finished.
//
// Lock order is queue.mu before Manager.mu. Manager.mu is never held while
// waiting for a queue lock.
type Manager struct {
	mu     sync.RWMutex
	queues map[Channel]*channelQueue

	provider Provider
	config   Config

	// In-flight joins and playbacks
	lifeMu sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	eventMu      sync.RWMutex
	eventCh      chan Event
	eventsClosed bool
}

// NewManager creates a new playback manager holding no queues.
func NewManager(provider Provider, config Config) *Manager {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	if config.LeaveTimeout <= 0 {
		config.LeaveTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		queues:   make(map[Channel]*channelQueue),
		provider: provider,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		eventCh:  make(chan Event, config.EventBuffer),
	}
}

// Events returns the event channel. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// Enqueue appends a playback request to the channel's queue and advances it.
// Requests for one channel play strictly in enqueue order.
func (m *Manager) Enqueue(ch Channel, s *sound.Sound) {
	if m.closed.Load() {
		zlog.Warn().Msgf("playback: enqueue ignored: %v: channel=%s", ErrManagerClosed, ch)
		return
	}

	req := newRequest(ch, s)
	for {
		q := m.queueFor(ch)

		q.mu.Lock()
		if q.removed {
			// Drained and dropped between lookup and lock
			q.mu.Unlock()
			continue
		}
		if m.closed.Load() {
			// Close ran between the check above and the lock
			zlog.Warn().Msgf("playback: enqueue ignored: %v: channel=%s", ErrManagerClosed, ch)
			if len(q.items) == 0 {
				m.removeLocked(q)
			}
			q.mu.Unlock()
			return
		}
		q.items = append(q.items, req)
		zlog.Debug().Msgf("playback: request queued: channel=%s request=%s sound=%s position=%d",
			ch, req.ID, req.soundID(), len(q.items)-1)
		m.sendEvent(Event{
			Type:      EventRequestQueued,
			Channel:   ch,
			RequestID: req.ID,
			SoundID:   req.soundID(),
			Status:    req.Status,
		})
		m.advanceLocked(q)
		q.mu.Unlock()
		return
	}
}

// Advance runs the advance step for one channel.
// Unknown or drained channels are a no-op.
func (m *Manager) Advance(ch Channel) {
	m.mu.RLock()
	q, ok := m.queues[ch]
	m.mu.RUnlock()
	if !ok {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.removed {
		return
	}
	m.advanceLocked(q)
}

// AdvanceAll runs the advance step for every registered queue and returns how many were visited.
func (m *Manager) AdvanceAll() int {
	queues := m.registered()
	for _, q := range queues {
		q.mu.Lock()
		if !q.removed && len(q.items) > 0 {
			m.advanceLocked(q)
		}
		q.mu.Unlock()
	}
	return len(queues)
}

// Close stops accepting requests, cancels in-flight joins and playbacks,
// leaves every channel that is still connected and closes the event channel.
func (m *Manager) Close(ctx context.Context) error {
	m.lifeMu.Lock()
	if m.closed.Load() {
		m.lifeMu.Unlock()
		return nil
	}
	m.closed.Store(true)
	m.lifeMu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "timed out waiting for in-flight playback")
	}

	for _, q := range m.registered() {
		q.mu.Lock()
		if _, ok := m.provider.Connection(q.channel); ok {
			// ctx may already be spent on the wait above
			leaveCtx, leaveCancel := context.WithTimeout(context.Background(), m.config.LeaveTimeout)
			leaveErr := m.provider.Leave(leaveCtx, q.channel)
			leaveCancel()
			if leaveErr != nil {
				zlog.Warn().Msgf("playback: failed to leave channel on close: channel=%s err=%v", q.channel, leaveErr)
			}
		}
		q.items = nil
		m.removeLocked(q)
		q.mu.Unlock()
	}

	m.eventMu.Lock()
	m.eventsClosed = true
	close(m.eventCh)
	m.eventMu.Unlock()

	return err
}

// QueueSnapshot is a read-only copy of one channel queue.
type QueueSnapshot struct {
	Channel Channel
	Items   []RequestSnapshot
}

// RequestSnapshot is a read-only copy of one request.
type RequestSnapshot struct {
	ID         string
	SoundID    string
	Status     Status
	EnqueuedAt time.Time
}

// Snapshot returns copies of all registered queues, ordered by channel.
func (m *Manager) Snapshot() []QueueSnapshot {
	queues := m.registered()
	result := make([]QueueSnapshot, 0, len(queues))
	for _, q := range queues {
		q.mu.Lock()
		if q.removed || len(q.items) == 0 {
			q.mu.Unlock()
			continue
		}
		snap := QueueSnapshot{
			Channel: q.channel,
			Items:   make([]RequestSnapshot, 0, len(q.items)),
		}
		for _, r := range q.items {
			snap.Items = append(snap.Items, RequestSnapshot{
				ID:         r.ID,
				SoundID:    r.soundID(),
				Status:     r.Status,
				EnqueuedAt: r.EnqueuedAt,
			})
		}
		q.mu.Unlock()
		result = append(result, snap)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Channel.String() < result[j].Channel.String()
	})
	return result
}

// queueFor returns the channel's queue, creating it if absent.
func (m *Manager) queueFor(ch Channel) *channelQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[ch]
	if !ok {
		q = &channelQueue{channel: ch}
		m.queues[ch] = q
	}
	return q
}

// registered returns the current queues without holding any queue lock.
func (m *Manager) registered() []*channelQueue {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queues := make([]*channelQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	return queues
}

// removeLocked drops a drained queue from the registry.
// Must be called with q.mu held.
func (m *Manager) removeLocked(q *channelQueue) {
	m.mu.Lock()
	if cur, ok := m.queues[q.channel]; ok && cur == q {
		delete(m.queues, q.channel)
	}
	m.mu.Unlock()
	q.removed = true
}

// advanceLocked performs every transition currently applicable to the queue head.
// It is idempotent: a head waiting on a join or on playback is left alone.
// Must be called with q.mu held.
func (m *Manager) advanceLocked(q *channelQueue) {
	for len(q.items) > 0 {
		if m.closed.Load() {
			return
		}

		head := q.items[0]
		switch head.Status {
		case StatusWaiting:
			if conn, ok := m.provider.Connection(q.channel); ok {
				head.Conn = conn
				head.advance(StatusConnecting)
				zlog.Debug().Msgf("playback: reusing connection: channel=%s request=%s", q.channel, head.ID)
				m.sendEvent(m.requestEvent(EventConnectionReused, head))
				continue
			}
			head.advance(StatusConnecting)
			zlog.Debug().Msgf("playback: joining channel: channel=%s request=%s", q.channel, head.ID)
			m.sendEvent(m.requestEvent(EventJoinRequested, head))
			m.startJoin(q, head)
			return

		case StatusConnecting:
			if head.Conn == nil {
				// Join still in flight
				return
			}
			head.advance(StatusPlaying)
			zlog.Info().Msgf("playback: playback started: channel=%s request=%s sound=%s",
				q.channel, head.ID, head.soundID())
			m.sendEvent(m.requestEvent(EventPlaybackStarted, head))
			m.startPlay(q, head)
			return

		case StatusPlaying:
			return

		case StatusFinished:
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) == 0 {
				m.releaseLocked(q)
				return
			}
		}
	}
}

// releaseLocked leaves the channel of a drained queue and drops the queue.
// Must be called with q.mu held.
func (m *Manager) releaseLocked(q *channelQueue) {
	if _, ok := m.provider.Connection(q.channel); ok {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.LeaveTimeout)
		err := m.provider.Leave(ctx, q.channel)
		cancel()
		if err != nil {
			zlog.Warn().Msgf("playback: failed to leave channel: channel=%s err=%v", q.channel, err)
		} else {
			zlog.Debug().Msgf("playback: queue drained, left channel: channel=%s", q.channel)
		}
		m.sendEvent(Event{Type: EventChannelReleased, Channel: q.channel, Status: StatusFinished})
	}
	m.removeLocked(q)
}

// startJoin issues an asynchronous join for the head request.
func (m *Manager) startJoin(q *channelQueue, req *Request) {
	if !m.track() {
		return
	}
	go func() {
		defer m.wg.Done()

		ctx, cancel := m.operationContext(m.config.JoinTimeout)
		defer cancel()

		conn, err := m.provider.Join(ctx, q.channel)
		m.onJoined(q, req, conn, err)
	}()
}

// onJoined is the join completion continuation.
func (m *Manager) onJoined(q *channelQueue, req *Request, conn Connection, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !m.isHeadLocked(q, req, StatusConnecting) || req.Conn != nil {
		zlog.Debug().Msgf("playback: ignoring stale join result: channel=%s request=%s", q.channel, req.ID)
		return
	}

	if err == nil && conn == nil {
		err = errors.New("provider returned no connection")
	}
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "join %s", q.channel), ErrJoinFailed)
		zlog.Error().Msgf("playback: request abandoned: channel=%s request=%s sound=%s err=%v",
			q.channel, req.ID, req.soundID(), err)
		req.abandon(err)
		ev := m.requestEvent(EventRequestAbandoned, req)
		ev.Err = err
		m.sendEvent(ev)
	} else {
		req.Conn = conn
		zlog.Debug().Msgf("playback: joined channel: channel=%s request=%s", q.channel, req.ID)
		m.sendEvent(m.requestEvent(EventJoined, req))
	}

	m.advanceLocked(q)
}

// startPlay starts asynchronous playback for the head request.
func (m *Manager) startPlay(q *channelQueue, req *Request) {
	conn := req.Conn
	s := req.Sound

	if !m.track() {
		return
	}
	go func() {
		defer m.wg.Done()

		ctx, cancel := m.operationContext(m.config.PlayTimeout)
		defer cancel()

		err := m.provider.Play(ctx, conn, s)
		m.onPlaybackEnded(q, req, err)
	}()
}

// onPlaybackEnded is the playback-ended continuation.
func (m *Manager) onPlaybackEnded(q *channelQueue, req *Request, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !m.isHeadLocked(q, req, StatusPlaying) {
		zlog.Debug().Msgf("playback: ignoring stale playback end: channel=%s request=%s", q.channel, req.ID)
		return
	}

	if err != nil {
		zlog.Warn().Msgf("playback: playback ended with error: channel=%s request=%s err=%v", q.channel, req.ID, err)
	}
	req.advance(StatusFinished)
	zlog.Info().Msgf("playback: playback finished: channel=%s request=%s sound=%s remaining=%d",
		q.channel, req.ID, req.soundID(), len(q.items)-1)
	m.sendEvent(m.requestEvent(EventPlaybackFinished, req))

	m.advanceLocked(q)
}

// isHeadLocked reports whether req is still the head of q in the given status.
// Must be called with q.mu held.
func (m *Manager) isHeadLocked(q *channelQueue, req *Request, status Status) bool {
	return !q.removed && len(q.items) > 0 && q.items[0] == req && req.Status == status
}

// track registers an in-flight operation unless the manager is closed.
func (m *Manager) track() bool {
	m.lifeMu.RLock()
	defer m.lifeMu.RUnlock()
	if m.closed.Load() {
		return false
	}
	m.wg.Add(1)
	return true
}

func (m *Manager) operationContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(m.ctx, timeout)
	}
	return context.WithCancel(m.ctx)
}

func (m *Manager) requestEvent(t EventType, req *Request) Event {
	return Event{
		Type:      t,
		Channel:   req.Channel,
		RequestID: req.ID,
		SoundID:   req.soundID(),
		Status:    req.Status,
	}
}

// sendEvent sends an event without blocking.
func (m *Manager) sendEvent(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	m.eventMu.RLock()
	defer m.eventMu.RUnlock()
	if m.eventsClosed {
		return
	}
	select {
	case m.eventCh <- e:
	default:
		zlog.Debug().Msgf("playback: event dropped (channel full): type=%s channel=%s", e.Type, e.Channel)
	}
}
