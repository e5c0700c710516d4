// Package notify delivers job outcomes to a human via ntfy push messages.
// Every send is fire-and-forget: failures are logged, never escalated.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/recipeclip/recipeclip/internal/logger"
)

// Config holds ntfy settings. Topic empty disables notifications.
type Config struct {
	Server  string
	Topic   string
	Timeout time.Duration
}

// Notifier publishes to one ntfy topic.
type Notifier struct {
	config Config
	client *http.Client
}

// New creates a Notifier.
func New(cfg Config) *Notifier {
	if cfg.Server == "" {
		cfg.Server = "https://ntfy.sh"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Notifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// NotifySuccess announces a stored recipe.
func (n *Notifier) NotifySuccess(ctx context.Context, recipeName, sourceName string) {
	body := fmt.Sprintf("Saved %q", recipeName)
	if sourceName != "" {
		body += " from " + sourceName
	}
	n.send(ctx, "Recipe saved", body, "default", "fork_and_knife")
}

// NotifyNotRecipe announces a rejected URL at low urgency.
func (n *Notifier) NotifyNotRecipe(ctx context.Context, url, reason string) {
	n.send(ctx, "Not a recipe", fmt.Sprintf("%s\n%s", url, reason), "low", "shrug")
}

// NotifyError announces a failed job at high urgency.
func (n *Notifier) NotifyError(ctx context.Context, url string, err error) {
	n.send(ctx, "Extraction failed", fmt.Sprintf("%s\n%v", url, err), "high", "rotating_light")
}

func (n *Notifier) send(ctx context.Context, title, body, priority, tags string) {
	if n.config.Topic == "" {
		return
	}

	url := strings.TrimRight(n.config.Server, "/") + "/" + n.config.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		logger.Warn("notification dropped", "title", title, "error", err)
		return
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Warn("notification dropped", "title", title, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("notification dropped", "title", title, "status", resp.StatusCode)
	}
}
