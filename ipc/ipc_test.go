package ipc_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/ipc"
)

type fakeHandler struct {
	handle func(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error)
}

func (f fakeHandler) Handle(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error) {
	return f.handle(ctx, cmd, args)
}

func startServer(t *testing.T, h ipc.Handler) (socketPath string, stop func()) {
	t.Helper()
	socketPath = filepath.Join(t.TempDir(), "conductor.sock")
	srv := ipc.NewServer(socketPath, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		c, err := ipc.Dial(socketPath)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, time.Second, 5*time.Millisecond)

	return socketPath, func() {
		cancel()
		<-done
	}
}

func TestPingRoundTrip(t *testing.T) {
	socketPath, stop := startServer(t, fakeHandler{handle: func(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error) {
		return map[string]string{"pong": "true"}, nil
	}})
	defer stop()

	c, err := ipc.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Ping()
	require.NoError(t, err)
	assert.Equal(t, ipc.StatusOK, resp.Status)
}

func TestUnknownModeErrorMapsToInvalidRequest(t *testing.T) {
	socketPath, stop := startServer(t, fakeHandler{handle: func(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error) {
		return nil, errs.New(errs.KindUnknownMode, "test", "unknown mode: nope")
	}})
	defer stop()

	c, err := ipc.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Send(ipc.CmdSetMode, map[string]string{"mode": "nope"})
	require.NoError(t, err)
	require.Equal(t, ipc.StatusError, resp.Status)
	assert.Equal(t, ipc.ErrInvalidRequest, resp.Error.Code)
}

func TestGenericErrorMapsToInternal(t *testing.T) {
	socketPath, stop := startServer(t, fakeHandler{handle: func(ctx context.Context, cmd ipc.Command, args json.RawMessage) (any, error) {
		return nil, errs.New(errs.KindIO, "test", "boom")
	}})
	defer stop()

	c, err := ipc.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, ipc.StatusError, resp.Status)
	assert.Equal(t, ipc.ErrInternal, resp.Error.Code)
}
