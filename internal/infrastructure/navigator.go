package infrastructure

import (
	"context"
	"net/url"
	"sync"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

const returnPathKey = "auth.return_path"

// StoreNavigator persists the post-sign-in return path in the preferences
// table and records the sign-in redirect for API clients to follow
type StoreNavigator struct {
	prefs    domain.PreferenceRepository
	entryURL string
	logger   *zap.Logger

	mu           sync.RWMutex
	lastRedirect string
}

// NewStoreNavigator creates a navigator backed by prefs
func NewStoreNavigator(prefs domain.PreferenceRepository, entryURL string, logger *zap.Logger) *StoreNavigator {
	if entryURL == "" {
		entryURL = "/auth"
	}
	return &StoreNavigator{prefs: prefs, entryURL: entryURL, logger: logger}
}

// SaveReturnPath remembers where to send the user after sign-in
func (n *StoreNavigator) SaveReturnPath(ctx context.Context, path string) error {
	return n.prefs.SetPreference(returnPathKey, path)
}

// ReturnPath returns the stored return path, empty if none
func (n *StoreNavigator) ReturnPath(ctx context.Context) (string, error) {
	return n.prefs.GetPreference(returnPathKey)
}

// RedirectToAuth points the client at the sign-in entry
func (n *StoreNavigator) RedirectToAuth(ctx context.Context, returnPath string) error {
	target := n.entryURL
	if returnPath != "" {
		target += "?next=" + url.QueryEscape(returnPath)
	}

	n.mu.Lock()
	n.lastRedirect = target
	n.mu.Unlock()

	n.logger.Info("Redirecting to sign-in", zap.String("target", target))
	return nil
}

// LastRedirect returns the most recent sign-in redirect target
func (n *StoreNavigator) LastRedirect() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.lastRedirect
}
