package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"portfolio-api/internal/models"
)

// ErrAuthRejected indicates the upstream provider rejected our credentials.
// A bad credential fails identically for every candidate, so the fallback
// loop aborts immediately instead of burning through the list.
var ErrAuthRejected = errors.New("upstream rejected credentials")

// ErrExhausted indicates every candidate model failed recoverably.
var ErrExhausted = errors.New("all candidate models exhausted")

// Attempter issues a single completion attempt against one candidate model.
// Implementations classify failures at the transport boundary: they return
// ErrAuthRejected for credential rejection and plain errors for anything
// recoverable (network failure, non-auth HTTP error, malformed response).
type Attempter interface {
	Attempt(ctx context.Context, model string, messages []models.Message) (string, error)
}

// Gateway obtains a completion from an ordered list of candidate models,
// stopping at the first success. Candidate order is a static priority list:
// no reordering, no per-candidate retry, no failure memory across requests.
type Gateway struct {
	attempter    Attempter
	candidates   []string
	systemPrompt string
}

// New constructs a gateway over the given attempter and candidate list.
func New(attempter Attempter, candidates []string, systemPrompt string) *Gateway {
	return &Gateway{
		attempter:    attempter,
		candidates:   candidates,
		systemPrompt: systemPrompt,
	}
}

// Complete prepends the fixed system instruction to the conversation and
// tries each candidate in order. The first successful completion wins.
// Credential rejection aborts the whole sequence; recoverable failures move
// on to the next candidate; spending the list returns ErrExhausted wrapping
// the last recorded failure.
func (g *Gateway) Complete(ctx context.Context, conversation []models.Message) (string, error) {
	messages := make([]models.Message, 0, len(conversation)+1)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: g.systemPrompt})
	messages = append(messages, conversation...)

	var lastErr error
	for _, model := range g.candidates {
		reply, err := g.attempter.Attempt(ctx, model, messages)
		if err == nil {
			return reply, nil
		}

		if errors.Is(err, ErrAuthRejected) {
			slog.Error("candidate rejected credentials, aborting fallback", "model", model)
			return "", err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		slog.Warn("candidate failed, trying next", "model", model, "err", err)
		lastErr = err
	}

	if lastErr == nil {
		return "", ErrExhausted
	}
	return "", fmt.Errorf("%w (last error: %v)", ErrExhausted, lastErr)
}
