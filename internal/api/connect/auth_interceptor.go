package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

var errInvalidToken = errors.New("invalid admin token")

// AdminAuthInterceptor validates the admin token on unary and streaming calls.
type AdminAuthInterceptor struct {
	token string
}

var _ connect.Interceptor = (*AdminAuthInterceptor)(nil)

// NewAdminAuthInterceptor creates an interceptor that validates admin tokens
// from request headers for AdminService methods.
func NewAdminAuthInterceptor(token string) *AdminAuthInterceptor {
	return &AdminAuthInterceptor{token: token}
}

func (i *AdminAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if err := i.check(req.Header().Get(AdminTokenHeader)); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *AdminAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *AdminAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.check(conn.RequestHeader().Get(AdminTokenHeader)); err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *AdminAuthInterceptor) check(token string) error {
	if token == "" || i.token == "" {
		return connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(i.token)) != 1 {
		return connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
	}
	return nil
}
