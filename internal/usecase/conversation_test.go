package usecase

import (
	"context"
	"errors"
	"testing"

	"halbot/internal/domain"
)

func TestReconstruct_SingleMessage(t *testing.T) {
	m := newFakeMessenger()
	trigger := testTrigger()

	conv, err := Reconstruct(context.Background(), m, trigger, 50)
	must(t, err)
	if len(conv) != 1 {
		t.Fatalf("want 1 message, got %d", len(conv))
	}
	if conv[0].ID != trigger.ID {
		t.Errorf("want trigger, got %s", conv[0].ID)
	}
}

func TestReconstruct_ChainOldestFirst(t *testing.T) {
	m := newFakeMessenger()
	m.store["a"] = &domain.ChatMessage{ID: "a", Content: "first"}
	m.store["b"] = &domain.ChatMessage{ID: "b", Content: "second", ReferenceID: "a"}
	trigger := &domain.ChatMessage{ID: "c", Content: "third", ReferenceID: "b"}

	conv, err := Reconstruct(context.Background(), m, trigger, 50)
	must(t, err)

	want := []string{"a", "b", "c"}
	if len(conv) != len(want) {
		t.Fatalf("want %d messages, got %d", len(want), len(conv))
	}
	for i, id := range want {
		if conv[i].ID != id {
			t.Errorf("position %d: want %s, got %s", i, id, conv[i].ID)
		}
	}
}

func TestReconstruct_DeletedReferenceEndsChain(t *testing.T) {
	m := newFakeMessenger()
	// "gone" is not in the store: reference resolves to nothing.
	trigger := &domain.ChatMessage{ID: "c", Content: "third", ReferenceID: "gone"}

	conv, err := Reconstruct(context.Background(), m, trigger, 50)
	must(t, err)
	if len(conv) != 1 || conv[0].ID != "c" {
		t.Fatalf("want just the trigger, got %d messages", len(conv))
	}
}

func TestReconstruct_DepthExceeded(t *testing.T) {
	m := newFakeMessenger()
	m.store["a"] = &domain.ChatMessage{ID: "a", ReferenceID: "b"}
	m.store["b"] = &domain.ChatMessage{ID: "b", ReferenceID: "a"} // cycle
	trigger := &domain.ChatMessage{ID: "c", ReferenceID: "a"}

	_, err := Reconstruct(context.Background(), m, trigger, 10)
	if !errors.Is(err, domain.ErrConversationTooLong) {
		t.Fatalf("want ErrConversationTooLong, got %v", err)
	}
}

func TestReconstruct_FetchFailureAborts(t *testing.T) {
	m := newFakeMessenger()
	m.fetchErr = errBoom
	trigger := &domain.ChatMessage{ID: "c", ReferenceID: "a"}

	_, err := Reconstruct(context.Background(), m, trigger, 50)
	if !errors.Is(err, errBoom) {
		t.Fatalf("want fetch error propagated, got %v", err)
	}
}

func TestNormalize_Roles(t *testing.T) {
	conv := []domain.ChatMessage{
		{AuthorID: "user-1", Content: "hello"},
		{AuthorID: "bot", Content: "hi there"},
		{AuthorID: "user-2", Content: "me too"},
	}

	msgs := Normalize(conv, "bot")
	if len(msgs) != 3 {
		t.Fatalf("want 3 messages, got %d", len(msgs))
	}
	wantRoles := []string{domain.RoleUser, domain.RoleAssistant, domain.RoleUser}
	for i, r := range wantRoles {
		if msgs[i].Role != r {
			t.Errorf("position %d: want role %s, got %s", i, r, msgs[i].Role)
		}
		if msgs[i].Content != conv[i].Content {
			t.Errorf("position %d: content mismatch", i)
		}
	}
}
