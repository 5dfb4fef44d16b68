package domain

import "context"

// Session is the caller's authentication state
type Session struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
}

// AuthEventType identifies an authentication state change
type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "SIGNED_IN"
	AuthSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is delivered on authentication state changes
type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID string        `json:"user_id,omitempty"`
}

// SessionProvider exposes the hosted auth backend
type SessionProvider interface {
	// GetSession returns the current session
	GetSession(ctx context.Context) (Session, error)

	// OnAuthStateChange subscribes to auth events.
	// The returned func unsubscribes and closes the channel.
	OnAuthStateChange(ctx context.Context) (<-chan AuthEvent, func(), error)
}

// Navigator redirects the caller to sign-in and remembers where to come back
type Navigator interface {
	RedirectToAuth(ctx context.Context, returnPath string) error
	SaveReturnPath(ctx context.Context, path string) error
	ReturnPath(ctx context.Context) (string, error)
}

// NotificationAction is an optional button on a notification
type NotificationAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Notification is a dismissible user-visible message
type Notification struct {
	Title   string              `json:"title"`
	Message string              `json:"message"`
	Action  *NotificationAction `json:"action,omitempty"`
}

// Notifier presents notifications to the user
type Notifier interface {
	Notify(n Notification)
}
