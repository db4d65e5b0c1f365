// Package fallback answers chat requests aimed at busy users. It asks
// an external responder service for a reply and, when that service is
// unreachable, substitutes a canned reply after a minimum delay so the
// exchange still feels like a person glanced at their phone.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/halcyon/courier/internal/domain"
)

// CannedReply is returned when the external responder fails or times out.
const CannedReply = "Sorry, I am currently busy. Please try again later."

// Directory resolves recipient names to account records.
type Directory interface {
	GetByName(ctx context.Context, name string) (*domain.User, error)
}

// Responder is the busy-fallback path. The upstream call is bounded by
// a timeout shorter than the canned-reply delay so a failed call never
// doubles the total latency.
type Responder struct {
	users    Directory
	client   *http.Client
	url      string
	minDelay time.Duration
	logger   *slog.Logger
}

func NewResponder(users Directory, url string, timeout, minDelay time.Duration, logger *slog.Logger) *Responder {
	return &Responder{
		users:    users,
		client:   &http.Client{Timeout: timeout},
		url:      url,
		minDelay: minDelay,
		logger:   logger.With("component", "fallback"),
	}
}

type upstreamRequest struct {
	Message string `json:"message"`
}

// RequestChat handles an explicit chat request to a busy recipient.
// Preconditions, in order: the recipient must exist and be online
// (domain.ErrRecipientUnavailable otherwise), and must be BUSY
// (domain.ErrRecipientNotBusy otherwise - an available recipient should
// be messaged over the normal routing path). Upstream failures are
// never surfaced; the caller always gets a reply.
func (r *Responder) RequestChat(ctx context.Context, sender, recipientName, message string) (string, error) {
	recipient, err := r.users.GetByName(ctx, recipientName)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrRecipientUnavailable
		}
		return "", fmt.Errorf("resolve recipient: %w", err)
	}
	if !recipient.Online {
		return "", domain.ErrRecipientUnavailable
	}
	if recipient.Status != domain.StatusBusy {
		return "", domain.ErrRecipientNotBusy
	}

	started := time.Now()

	reply, err := r.callUpstream(ctx, message)
	if err == nil {
		return reply, nil
	}
	r.logger.Warn("responder upstream failed, using canned reply",
		"sender", sender, "recipient", recipientName, "error", err)

	// The canned reply fires no earlier than minDelay after the
	// attempt began; the time already spent on the upstream call
	// counts toward it.
	if remaining := r.minDelay - time.Since(started); remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return CannedReply, nil
}

// callUpstream makes the one-shot call to the external responder. It
// is not retried.
func (r *Responder) callUpstream(ctx context.Context, message string) (string, error) {
	if r.url == "" {
		return "", errors.New("no responder endpoint configured")
	}

	body, err := json.Marshal(upstreamRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call responder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("responder returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read responder body: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
