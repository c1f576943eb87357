package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/noisebox/internal/app/notification"
	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/domain/sound"
)

const testToken = "secret"

type fakeQueues struct {
	mu       sync.Mutex
	snapshot []playback.QueueSnapshot
	advanced int
}

func (f *fakeQueues) Snapshot() []playback.QueueSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeQueues) AdvanceAll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced++
	return len(f.snapshot)
}

type fakeSounds []*sound.Sound

func (f fakeSounds) Sounds() []*sound.Sound { return f }

func newTestServer(t *testing.T) (*httptest.Server, *fakeQueues, *notification.Manager) {
	t.Helper()

	enqueuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	queues := &fakeQueues{
		snapshot: []playback.QueueSnapshot{
			{
				Channel: playback.Channel{GuildID: "g1", ID: "voice1"},
				Items: []playback.RequestSnapshot{
					{ID: "r1", SoundID: "OSTRICH", Status: playback.StatusPlaying, EnqueuedAt: enqueuedAt},
					{ID: "r2", SoundID: "OSTRICH", Status: playback.StatusWaiting, EnqueuedAt: enqueuedAt},
				},
			},
		},
	}
	sounds := fakeSounds{
		sound.New("OSTRICH", "ostrich.dca", []string{"haha", "ostrich"}, [][]byte{{1, 2}, {3}}),
	}
	notifier := notification.NewManager()

	svc := NewAdminService(queues, sounds, notifier)
	path, handler := NewAdminServiceHandler(svc, connect.WithInterceptors(NewAdminAuthInterceptor(testToken)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		notifier.Close()
		server.Close()
	})
	return server, queues, notifier
}

func TestAdminService_GetStatus(t *testing.T) {
	server, _, _ := newTestServer(t)
	client := NewAdminClient(server.Client(), server.URL, testToken)

	status, err := client.GetStatus(context.Background())
	require.NoError(t, err)

	require.Len(t, status.Queues, 1)
	q := status.Queues[0]
	assert.Equal(t, "g1", q.GuildID)
	assert.Equal(t, "voice1", q.ChannelID)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "r1", q.Items[0].RequestID)
	assert.Equal(t, "playing", q.Items[0].Status)
	assert.Equal(t, "waiting", q.Items[1].Status)

	require.Len(t, status.Sounds, 1)
	assert.Equal(t, SoundInfo{
		ID:         "OSTRICH",
		Keywords:   []string{"haha", "ostrich"},
		Frames:     2,
		DurationMS: 40,
		SizeBytes:  3,
	}, status.Sounds[0])
	assert.Equal(t, 0, status.Subscribers)
}

func TestAdminService_AdvanceAll(t *testing.T) {
	server, queues, _ := newTestServer(t)
	client := NewAdminClient(server.Client(), server.URL, testToken)

	resp, err := client.AdvanceAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Queues)
	assert.Equal(t, 1, queues.advanced)
}

func TestAdminAuthInterceptor(t *testing.T) {
	server, queues, _ := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "guess"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewAdminClient(server.Client(), server.URL, tt.token)

			_, err := client.AdvanceAll(context.Background())
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

			stream, err := client.WatchEvents(context.Background())
			if err == nil {
				assert.False(t, stream.Receive())
				err = stream.Err()
				stream.Close()
			}
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
	assert.Equal(t, 0, queues.advanced)
}

func TestAdminService_WatchEvents(t *testing.T) {
	server, _, notifier := newTestServer(t)
	client := NewAdminClient(server.Client(), server.URL, testToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.WatchEvents(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	initial := stream.Msg()
	assert.Equal(t, uint64(1), initial.SequenceNo)
	assert.Equal(t, notification.TypeInitialState, initial.Type)
	assert.Equal(t, []notification.QueueSummary{
		{GuildID: "g1", ChannelID: "voice1", Pending: 2, HeadSound: "OSTRICH", HeadStatus: "playing"},
	}, initial.Queues)

	require.Eventually(t, func() bool {
		return notifier.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	notifier.Broadcast(notification.FromEvent(playback.Event{
		Type:      playback.EventPlaybackStarted,
		Channel:   playback.Channel{GuildID: "g1", ID: "voice1"},
		RequestID: "r1",
		SoundID:   "OSTRICH",
		Status:    playback.StatusPlaying,
		At:        time.Now(),
	}))

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	msg := stream.Msg()
	assert.Equal(t, uint64(2), msg.SequenceNo)
	assert.Equal(t, "playback_started", msg.Type)
	assert.Equal(t, "OSTRICH", msg.SoundID)
	assert.Equal(t, "voice1", msg.ChannelID)

	cancel()
	require.Eventually(t, func() bool {
		return notifier.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAdminService_WatchEventsOpensWhenIdle(t *testing.T) {
	server, queues, _ := newTestServer(t)
	queues.mu.Lock()
	queues.snapshot = nil
	queues.mu.Unlock()
	client := NewAdminClient(server.Client(), server.URL, testToken)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := client.WatchEvents(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	assert.Equal(t, notification.TypeInitialState, stream.Msg().Type)
	assert.Empty(t, stream.Msg().Queues)
}
