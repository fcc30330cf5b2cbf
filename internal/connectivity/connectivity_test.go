package connectivity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/connectivity"
)

func TestSwitch_PublishesTransitionsOnly(t *testing.T) {
	s := connectivity.NewSwitch(false)
	assert.False(t, s.Online())

	s.Set(false)
	select {
	case <-s.Changes():
		t.Fatal("no transition expected")
	default:
	}

	s.Set(true)
	assert.True(t, s.Online())
	select {
	case v := <-s.Changes():
		assert.True(t, v)
	default:
		t.Fatal("expected a transition")
	}
}

func TestSwitch_KeepsLatestUnreadChange(t *testing.T) {
	s := connectivity.NewSwitch(false)
	s.Set(true)
	s.Set(false)

	v := <-s.Changes()
	assert.False(t, v)
	select {
	case <-s.Changes():
		t.Fatal("only the latest transition should be buffered")
	default:
	}
}

func TestProber_DetectsRecovery(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := connectivity.NewProber(srv.URL, 10*time.Millisecond, time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	assert.False(t, p.Online())
	healthy.Store(true)

	select {
	case v := <-p.Changes():
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("prober never reported online")
	}
	require.True(t, p.Online())
}

func TestProber_UnreachableIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := connectivity.NewProber(url, time.Hour, 100*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	assert.False(t, p.Online())
}
