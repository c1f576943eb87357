package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/app/notification"
	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/domain/sound"
)

// Queues is the playback manager as seen by the admin service.
type Queues interface {
	Snapshot() []playback.QueueSnapshot
	AdvanceAll() int
}

// Sounds lists the loaded sounds.
type Sounds interface {
	Sounds() []*sound.Sound
}

// AdminService implements the AdminService RPC.
type AdminService struct {
	queues   Queues
	sounds   Sounds
	notifier *notification.Manager
}

// NewAdminService creates a new AdminService.
func NewAdminService(queues Queues, sounds Sounds, notifier *notification.Manager) *AdminService {
	return &AdminService{
		queues:   queues,
		sounds:   sounds,
		notifier: notifier,
	}
}

// GetStatus returns the queues, the sound catalog and the subscriber count.
func (s *AdminService) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	resp := &GetStatusResponse{
		Queues:      make([]QueueStatus, 0),
		Sounds:      make([]SoundInfo, 0),
		Subscribers: s.notifier.SubscriberCount(),
	}

	for _, q := range s.queues.Snapshot() {
		qs := QueueStatus{
			GuildID:   q.Channel.GuildID,
			ChannelID: q.Channel.ID,
			Items:     make([]QueueItem, 0, len(q.Items)),
		}
		for _, item := range q.Items {
			qs.Items = append(qs.Items, QueueItem{
				RequestID:  item.ID,
				SoundID:    item.SoundID,
				Status:     item.Status.String(),
				EnqueuedAt: item.EnqueuedAt,
			})
		}
		resp.Queues = append(resp.Queues, qs)
	}

	for _, snd := range s.sounds.Sounds() {
		resp.Sounds = append(resp.Sounds, SoundInfo{
			ID:         snd.ID,
			Keywords:   snd.Keywords,
			Frames:     len(snd.Frames),
			DurationMS: snd.Duration().Milliseconds(),
			SizeBytes:  snd.Size(),
		})
	}

	return connect.NewResponse(resp), nil
}

// AdvanceAll re-evaluates the head of every queue.
func (s *AdminService) AdvanceAll(
	ctx context.Context,
	req *connect.Request[AdvanceAllRequest],
) (*connect.Response[AdvanceAllResponse], error) {
	n := s.queues.AdvanceAll()
	zlog.Info().Msgf("admin: advanced %d queue(s)", n)
	return connect.NewResponse(&AdvanceAllResponse{Queues: n}), nil
}

// WatchEvents sends the current queue state, then streams playback notifications
// until the client goes away or the notifier is closed.
func (s *AdminService) WatchEvents(
	ctx context.Context,
	req *connect.Request[WatchEventsRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	// Stream headers are flushed with the first message.
	initial := notification.InitialState(s.queues.Snapshot())
	initial.SequenceNo = s.notifier.NextSequenceNo()
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifier.Subscribe(adapter)
	defer s.notifier.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.notifier.Done():
	}
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// A send that outlives the broadcast timeout may overlap the next one, so sends are serialized.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}

// NewAdminServiceHandler builds an HTTP handler serving every AdminService procedure
// and returns the path to mount it on.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(AdvanceAllProcedure, connect.NewUnaryHandler(AdvanceAllProcedure, svc.AdvanceAll, opts...))
	mux.Handle(WatchEventsProcedure, connect.NewServerStreamHandler(WatchEventsProcedure, svc.WatchEvents, opts...))
	return adminServicePathPattern, mux
}
