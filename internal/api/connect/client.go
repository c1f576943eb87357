package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/osa030/noisebox/internal/app/notification"
)

// AdminClient calls the AdminService with an admin token.
type AdminClient struct {
	token       string
	getStatus   *connect.Client[GetStatusRequest, GetStatusResponse]
	advanceAll  *connect.Client[AdvanceAllRequest, AdvanceAllResponse]
	watchEvents *connect.Client[WatchEventsRequest, notification.Notification]
}

// NewAdminClient creates a client for the AdminService at baseURL.
func NewAdminClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *AdminClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &AdminClient{
		token:       token,
		getStatus:   connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+GetStatusProcedure, opts...),
		advanceAll:  connect.NewClient[AdvanceAllRequest, AdvanceAllResponse](httpClient, baseURL+AdvanceAllProcedure, opts...),
		watchEvents: connect.NewClient[WatchEventsRequest, notification.Notification](httpClient, baseURL+WatchEventsProcedure, opts...),
	}
}

func (c *AdminClient) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	req := connect.NewRequest(&GetStatusRequest{})
	req.Header().Set(AdminTokenHeader, c.token)
	resp, err := c.getStatus.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *AdminClient) AdvanceAll(ctx context.Context) (*AdvanceAllResponse, error) {
	req := connect.NewRequest(&AdvanceAllRequest{})
	req.Header().Set(AdminTokenHeader, c.token)
	resp, err := c.advanceAll.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// WatchEvents opens the notification stream. The caller must Close it.
func (c *AdminClient) WatchEvents(ctx context.Context) (*connect.ServerStreamForClient[notification.Notification], error) {
	req := connect.NewRequest(&WatchEventsRequest{})
	req.Header().Set(AdminTokenHeader, c.token)
	return c.watchEvents.CallServerStream(ctx, req)
}
