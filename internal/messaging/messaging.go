// Package messaging builds chat messages and merges chat logs. A log only
// grows: merging two views of it is a union keyed by message id.
package messaging

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/models"

	"github.com/google/uuid"
)

// Validate checks role and text of a message about to be sent.
func Validate(role models.SenderRole, text string) error {
	const op = "messaging.Validate"
	if !role.Valid() {
		return apperr.Validation(op, "unknown sender role %q", role)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return apperr.Validation(op, "message text is empty")
	}
	if utf8.RuneCountInString(trimmed) > config.MaxMessageLength {
		return apperr.Validation(op, "message is longer than %d characters", config.MaxMessageLength)
	}
	return nil
}

// New builds a message with a fresh time-ordered id.
func New(requestID string, role models.SenderRole, text string, now time.Time) (models.ChatMessage, error) {
	if err := Validate(role, text); err != nil {
		return models.ChatMessage{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.ChatMessage{}, apperr.Wrap(apperr.KindInternal, "messaging.New", err)
	}
	return models.ChatMessage{
		ID:         id.String(),
		RequestID:  requestID,
		SenderRole: role,
		Text:       strings.TrimSpace(text),
		Timestamp:  now,
	}, nil
}

// Merge returns the union of a and b ordered by timestamp then id. When both
// hold the same id the copy in a wins; stored messages never differ anyway.
func Merge(a, b []models.ChatMessage) []models.ChatMessage {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]models.ChatMessage, 0, len(a)+len(b))
	for _, list := range [][]models.ChatMessage{a, b} {
		for _, m := range list {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	Sort(out)
	return out
}

// Sort orders msgs by timestamp, ties broken by id.
func Sort(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
