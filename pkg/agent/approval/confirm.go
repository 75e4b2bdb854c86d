package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// Confirm asks the user to approve an action. A timeout counts as refusal;
// only context cancellation is returned as an error.
func (m *Manager) Confirm(ctx context.Context, description, reason string) (bool, error) {
	pr := m.setupPending(kindConfirmation)
	defer m.cleanupPending(pr)

	m.emitEvent(types.NewConfirmationRequestEvent(pr.id, description, reason))

	resp, err := m.waitForResponse(ctx, pr)
	switch {
	case errors.Is(err, ErrTimeout):
		m.emitEvent(types.NewConfirmationTimeoutEvent(pr.id))
		return false, nil
	case err != nil:
		return false, err
	}

	if resp.Approved {
		m.emitEvent(types.NewConfirmationGrantedEvent(pr.id))
		return true, nil
	}
	m.emitEvent(types.NewConfirmationRejectedEvent(pr.id))
	return false, nil
}

// Ask puts a question to the user and returns the answer.
func (m *Manager) Ask(ctx context.Context, question string, options []string) (string, error) {
	pr := m.setupPending(kindQuestion)
	defer m.cleanupPending(pr)

	m.emitEvent(types.NewQuestionRequestEvent(pr.id, question, options))

	resp, err := m.waitForResponse(ctx, pr)
	if err != nil {
		return "", fmt.Errorf("question %q: %w", question, err)
	}
	m.emitEvent(types.NewQuestionAnsweredEvent(pr.id, resp.Answer))
	return resp.Answer, nil
}
