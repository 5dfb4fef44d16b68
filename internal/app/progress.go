package app

import (
	"sync"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// ProgressTracker keeps the latest percentage reported for each download
// and fans it out to watchers such as the progress websocket
type ProgressTracker struct {
	mu       sync.RWMutex
	latest   map[string]int
	watchers map[string]map[chan int]struct{}

	// retention is how long a settled download's last value stays readable
	retention time.Duration
}

// DefaultProgressRetention keeps a finished download's last value long
// enough for a status poll or a late websocket to read it
const DefaultProgressRetention = time.Minute

// NewProgressTracker creates an empty tracker with the default retention
func NewProgressTracker() *ProgressTracker {
	return NewProgressTrackerWithRetention(DefaultProgressRetention)
}

// NewProgressTrackerWithRetention creates an empty tracker. A zero
// retention forgets a download as soon as it settles.
func NewProgressTrackerWithRetention(retention time.Duration) *ProgressTracker {
	return &ProgressTracker{
		latest:    make(map[string]int),
		watchers:  make(map[string]map[chan int]struct{}),
		retention: retention,
	}
}

// Sink returns a progress callback that records into the tracker.
// Values pass through unchanged.
func (t *ProgressTracker) Sink(id string) domain.ProgressFunc {
	return func(percent int) {
		t.mu.Lock()
		t.latest[id] = percent
		for ch := range t.watchers[id] {
			select {
			case ch <- percent:
			default:
				// keep only the newest value for slow watchers
				select {
				case <-ch:
				default:
				}
				ch <- percent
			}
		}
		t.mu.Unlock()
	}
}

// Get returns the latest percentage for id
func (t *ProgressTracker) Get(id string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.latest[id]
	return p, ok
}

// Subscribe streams updates for id. The returned func stops the stream.
func (t *ProgressTracker) Subscribe(id string) (<-chan int, func()) {
	ch := make(chan int, 1)

	t.mu.Lock()
	if t.watchers[id] == nil {
		t.watchers[id] = make(map[chan int]struct{})
	}
	t.watchers[id][ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.watchers[id], ch)
			if len(t.watchers[id]) == 0 {
				delete(t.watchers, id)
			}
			t.mu.Unlock()
		})
	}
}

// Forget drops the stored value for id
func (t *ProgressTracker) Forget(id string) {
	t.mu.Lock()
	delete(t.latest, id)
	t.mu.Unlock()
}

// Release forgets id once the retention window has passed. Wire it to
// Orchestrator.OnSettled so the tracker does not grow with every request.
func (t *ProgressTracker) Release(id string) {
	if t.retention <= 0 {
		t.Forget(id)
		return
	}
	time.AfterFunc(t.retention, func() { t.Forget(id) })
}

// Len reports how many downloads currently have a stored value
func (t *ProgressTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.latest)
}
