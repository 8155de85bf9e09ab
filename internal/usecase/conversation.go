package usecase

import (
	"context"
	"time"

	"halbot/internal/domain"
)

// Reconstruct walks the reply chain backward from trigger and returns the
// conversation oldest-first, trigger last. It stops at the first message
// without a reply reference, or whose reference no longer resolves to a
// message. A fetch failure aborts the whole operation — a silently
// truncated conversation would change the model's context. Chains longer
// than maxDepth fail with ErrConversationTooLong, which also bounds
// malformed cyclic chains.
func Reconstruct(ctx context.Context, m domain.Messenger, trigger *domain.ChatMessage, maxDepth int) ([]domain.ChatMessage, error) {
	conv := []domain.ChatMessage{*trigger}
	cur := trigger

	for cur.ReferenceID != "" {
		if len(conv) >= maxDepth {
			return nil, domain.NewDomainError("Reconstruct", domain.ErrConversationTooLong,
				cur.ReferenceID)
		}

		ref, err := m.FetchReferenced(ctx, cur)
		if err != nil {
			return nil, domain.WrapOp("fetch referenced message", err)
		}
		if ref == nil {
			// Deleted message or non-message entity: the chain ends here.
			break
		}

		conv = append([]domain.ChatMessage{*ref}, conv...)
		cur = ref
	}

	return conv, nil
}

// Normalize maps platform messages into the provider-agnostic role/content
// representation, one-to-one. Messages authored by the bot become
// assistant turns; everything else is a user turn.
func Normalize(conv []domain.ChatMessage, botUserID string) []domain.Message {
	msgs := make([]domain.Message, 0, len(conv))
	for _, m := range conv {
		role := domain.RoleUser
		if m.AuthorID == botUserID {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.Message{
			Role:      role,
			Content:   m.Content,
			Timestamp: time.Now(),
		})
	}
	return msgs
}
