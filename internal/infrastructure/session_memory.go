package infrastructure

import (
	"context"
	"sync"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// MemorySessionProvider is an in-process session store for single-user
// deployments and tests
type MemorySessionProvider struct {
	mu      sync.RWMutex
	session domain.Session
	subs    map[int]chan domain.AuthEvent
	nextID  int
}

// NewMemorySessionProvider creates a signed-out provider
func NewMemorySessionProvider() *MemorySessionProvider {
	return &MemorySessionProvider{subs: make(map[int]chan domain.AuthEvent)}
}

// GetSession returns the current session
func (p *MemorySessionProvider) GetSession(ctx context.Context) (domain.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session, nil
}

// OnAuthStateChange subscribes to sign-in/out events.
// The subscription ends when unsubscribe is called or ctx is done.
func (p *MemorySessionProvider) OnAuthStateChange(ctx context.Context) (<-chan domain.AuthEvent, func(), error) {
	ch := make(chan domain.AuthEvent, 8)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe, nil
}

// SignIn marks the session authenticated and emits SIGNED_IN
func (p *MemorySessionProvider) SignIn(ctx context.Context, userID string) error {
	p.mu.Lock()
	p.session = domain.Session{Authenticated: true, UserID: userID}
	p.mu.Unlock()

	p.publish(domain.AuthEvent{Type: domain.AuthSignedIn, UserID: userID})
	return nil
}

// SignOut clears the session and emits SIGNED_OUT
func (p *MemorySessionProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	userID := p.session.UserID
	p.session = domain.Session{}
	p.mu.Unlock()

	p.publish(domain.AuthEvent{Type: domain.AuthSignedOut, UserID: userID})
	return nil
}

func (p *MemorySessionProvider) publish(event domain.AuthEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber: evict the oldest event so the newest state is
			// always delivered without blocking sign-in
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
