package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/mossy-p/ptt-signaling/internal/registry"
)

const presenceTimeout = 2 * time.Second

// Presence receives registry changes. The Redis mirror implements it.
type Presence interface {
	Track(ctx context.Context, user *models.User) error
	Forget(ctx context.Context, user *models.User) error
}

type Options struct {
	MaxMessageSize int64
	SendBuffer     int
	StrictSignals  bool
	Presence       Presence
}

// Relay owns the live connections and the role registry and routes every
// event received on a signaling socket.
type Relay struct {
	hub            *Hub
	registry       *registry.Registry
	presence       Presence
	maxMessageSize int64
	sendBuffer     int
	strictSignals  bool
	now            func() time.Time

	// mu guards closing and every wg.Add, so no pump starts once
	// Shutdown is waiting.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewRelay(reg *registry.Registry, opts Options) *Relay {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 1 << 20
	}
	return &Relay{
		hub:            NewHub(),
		registry:       reg,
		presence:       opts.Presence,
		maxMessageSize: opts.MaxMessageSize,
		sendBuffer:     opts.SendBuffer,
		strictSignals:  opts.StrictSignals,
		now:            time.Now,
	}
}

// Status reports registry counters.
func (r *Relay) Status(c *gin.Context) {
	c.JSON(http.StatusOK, r.registry.Snapshot())
}

// Shutdown closes every connection and waits for their pumps to finish.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	n := r.hub.CloseAll()
	slog.Info("closing signaling connections", "count", n)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reservePumps accounts for the two pumps of a new connection. It reports
// false once Shutdown has started.
func (r *Relay) reservePumps() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		return false
	}
	r.wg.Add(2)
	return true
}

func (r *Relay) timestamp() string {
	return r.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (r *Relay) track(user *models.User) {
	if r.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := r.presence.Track(ctx, user); err != nil {
		slog.Warn("presence update failed", "peer", user.SocketID, "error", err)
	}
}

func (r *Relay) forget(user *models.User) {
	if r.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := r.presence.Forget(ctx, user); err != nil {
		slog.Warn("presence removal failed", "peer", user.SocketID, "error", err)
	}
}
