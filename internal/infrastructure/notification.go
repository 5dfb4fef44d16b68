package infrastructure

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
	"go.uber.org/zap"
)

// FeedEntry is a notification as shown to UI clients
type FeedEntry struct {
	domain.Notification
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService keeps a feed of recent notifications for UI clients
// and optionally forwards them to the desktop
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error

	mu   sync.RWMutex
	feed []FeedEntry
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Notify records n in the feed and delivers it
func (n *NotificationService) Notify(notification domain.Notification) {
	n.append(notification)

	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping delivery",
			zap.String("title", notification.Title))
		return
	}

	message := notification.Message
	if notification.Action != nil {
		message = fmt.Sprintf("%s (%s: %s)", message, notification.Action.Label, notification.Action.URL)
	}

	var err error
	switch n.config.Method {
	case "", "log":
		n.logger.Info("Notification",
			zap.String("title", notification.Title),
			zap.String("message", message))
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, notification.Title)
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", notification.Title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
	}
}

// Recent returns the feed, newest first
func (n *NotificationService) Recent() []FeedEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]FeedEntry, len(n.feed))
	for i, entry := range n.feed {
		out[len(n.feed)-1-i] = entry
	}
	return out
}

func (n *NotificationService) append(notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.feed = append(n.feed, FeedEntry{Notification: notification, CreatedAt: time.Now()})
	if limit := n.config.FeedSize; limit > 0 && len(n.feed) > limit {
		n.feed = n.feed[len(n.feed)-limit:]
	}
}
