package usecase

import (
	"context"
	"strings"
	"testing"

	"halbot/internal/domain"
)

func TestChunk_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		text string
		size int
		want int
	}{
		{"empty", "", 10, 0},
		{"fits", "hello", 10, 1},
		{"exact", "hello", 5, 1},
		{"split", "hello world", 5, 3},
		{"multibyte", strings.Repeat("héllo", 4), 7, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Chunk(tc.text, tc.size)
			if len(chunks) != tc.want {
				t.Fatalf("want %d chunks, got %d", tc.want, len(chunks))
			}
			for i, c := range chunks {
				if n := len([]rune(c)); n > tc.size {
					t.Errorf("chunk %d has %d runes, limit %d", i, n, tc.size)
				}
			}
			if strings.Join(chunks, "") != tc.text {
				t.Error("concatenated chunks differ from input")
			}
		})
	}
}

func TestDispatcher_ReplyOnly(t *testing.T) {
	m := newFakeMessenger()
	d := NewDispatcher(m, 5, nopLogger())
	trigger := testTrigger()

	last, err := d.Emit(context.Background(), "aaaaabbbbbcc", trigger, false, nil)
	must(t, err)

	if len(m.edits) != 0 {
		t.Fatalf("want no edits, got %d", len(m.edits))
	}
	if len(m.replies) != 3 {
		t.Fatalf("want 3 replies, got %d", len(m.replies))
	}
	// First chunk replies to the trigger, later chunks thread off the
	// previous chunk's message.
	if m.replies[0].TargetID != trigger.ID {
		t.Errorf("first reply target: want %s, got %s", trigger.ID, m.replies[0].TargetID)
	}
	if m.replies[1].TargetID == trigger.ID {
		t.Error("second reply must target the first chunk, not the trigger")
	}
	if last.Content != "cc" {
		t.Errorf("want last message to carry final chunk, got %q", last.Content)
	}
}

func TestDispatcher_EditFirstChunk(t *testing.T) {
	m := newFakeMessenger()
	d := NewDispatcher(m, 5, nopLogger())
	placeholder := &domain.ChatMessage{ID: "think-1", ChannelID: "chan-1", Content: "🤔"}

	_, err := d.Emit(context.Background(), "aaaaabbbbb", placeholder, true, nil)
	must(t, err)

	if len(m.edits) != 1 || m.edits[0].TargetID != "think-1" {
		t.Fatalf("want one edit of the placeholder, got %+v", m.edits)
	}
	if m.edits[0].Content != "aaaaa" {
		t.Errorf("edit content: want first chunk, got %q", m.edits[0].Content)
	}
	if len(m.replies) != 1 || m.replies[0].Content != "bbbbb" {
		t.Fatalf("want one follow-up reply with second chunk, got %+v", m.replies)
	}
}

func TestDispatcher_FilesOnLastChunk(t *testing.T) {
	m := newFakeMessenger()
	d := NewDispatcher(m, 5, nopLogger())
	trigger := testTrigger()
	files := []domain.File{{Name: "generated-0.png", ContentType: "image/png", Data: []byte{1}}}

	last, err := d.Emit(context.Background(), "aaaaabbb", trigger, false, files)
	must(t, err)

	if got := m.attached[last.ID]; len(got) != 1 || got[0].Name != "generated-0.png" {
		t.Fatalf("want file attached to final message %s, got %+v", last.ID, m.attached)
	}
	for id, fs := range m.attached {
		if id != last.ID && len(fs) > 0 {
			t.Errorf("files attached to non-final message %s", id)
		}
	}
}

func TestDispatcher_EmptyTextStillReplies(t *testing.T) {
	m := newFakeMessenger()
	d := NewDispatcher(m, 5, nopLogger())
	placeholder := &domain.ChatMessage{ID: "think-1", ChannelID: "chan-1"}
	files := []domain.File{{Name: "generated-0.png"}}

	last, err := d.Emit(context.Background(), "", placeholder, true, files)
	must(t, err)
	if len(m.edits) != 1 {
		t.Fatalf("want the placeholder edited even with empty text, got %d edits", len(m.edits))
	}
	if len(m.attached[last.ID]) != 1 {
		t.Error("want file attached despite empty text")
	}
}
