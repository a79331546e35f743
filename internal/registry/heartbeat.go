package registry

import (
	"sync"
	"time"

	"github.com/rosterdev/roster/internal/logging"
)

// Heartbeat republishes this instance's entry on a fixed interval for the
// lifetime of the process. A failed tick is logged and skipped; the next
// tick proceeds normally. After a failed tick it also runs the repair
// hook, which the client uses to restart a dead change notifier.
type Heartbeat struct {
	interval time.Duration
	publish  func() error
	repair   func()
	logger   *logging.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewHeartbeat creates a heartbeat. publish is the client's locked
// snapshot-and-write path; repair may be nil.
func NewHeartbeat(interval time.Duration, publish func() error, repair func(), logger *logging.Logger) *Heartbeat {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Heartbeat{
		interval: interval,
		publish:  publish,
		repair:   repair,
		logger:   logger.WithComponent("heartbeat"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking. Calling Start twice is a no-op.
func (h *Heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	go h.loop()
}

// Stop ends the heartbeat and waits for the loop to exit.
// Safe to call before Start and safe to call twice.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	select {
	case <-h.stopCh:
		// already stopped
		h.mu.Unlock()
		return
	default:
	}
	close(h.stopCh)
	h.mu.Unlock()
	<-h.done
}

func (h *Heartbeat) loop() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if err := h.publish(); err != nil {
				h.logger.Warn("heartbeat publish failed, skipping tick", "error", err)
				if h.repair != nil {
					h.repair()
				}
			}
		}
	}
}
