package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

func TestServe_ShutdownRunsHooksInOrder(t *testing.T) {
	log, _ := logger.New("", "test", "error")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "ok") })
	cfg := DefaultServerConfig("0")
	cfg.ShutdownTimeout = 5 * time.Second
	cfg.DrainTimeout = time.Second
	srv := NewServer(cfg, handler)

	var order []int
	hookErr := errors.New("hook failed")
	hooks := []ShutdownHook{
		func(context.Context) error { order = append(order, 1); return nil },
		func(context.Context) error { order = append(order, 2); return hookErr },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, ln, cfg, log, "test", hooks...) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, hookErr)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, []int{1, 2}, order)
}
