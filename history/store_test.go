package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kamrul1157024/terminal-ai/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestCreateDefaultsNameAndAssignsID(t *testing.T) {
	store := openTestStore(t)

	thread, err := store.Create("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if thread.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if thread.Name == "" {
		t.Fatal("expected timestamp-derived default name")
	}

	named, err := store.Create("refactor session")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if named.Name != "refactor session" {
		t.Fatalf("expected explicit name, got %q", named.Name)
	}
}

func TestUpdateAndGetRoundTripsAllShapes(t *testing.T) {
	store := openTestStore(t)
	thread, err := store.Create("shapes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	messages := []llm.Message{
		llm.SystemMessage{Text: "you are helpful"},
		llm.UserMessage{Text: "list files"},
		llm.ToolCallMessage{Calls: []llm.ToolCallRequest{
			{Name: "execute_command", Arguments: map[string]any{"command": "ls"}, CallID: "c1"},
		}},
		llm.ToolMessage{Results: []llm.ToolCallResponse{
			{Name: "execute_command", Result: "a.txt\n", CallID: "c1"},
		}},
		llm.AssistantMessage{Text: "one file: a.txt"},
	}

	if _, err := store.Update(thread.ID, messages); err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := store.Get(thread.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Messages) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(loaded.Messages))
	}

	call, ok := loaded.Messages[2].(llm.ToolCallMessage)
	if !ok {
		t.Fatalf("message 2 is %T, want ToolCallMessage", loaded.Messages[2])
	}
	if len(call.Calls) != 1 || call.Calls[0].CallID != "c1" {
		t.Fatalf("tool call lost correlation: %+v", call.Calls)
	}
	if call.Calls[0].Arguments["command"] != "ls" {
		t.Fatalf("tool call lost arguments: %+v", call.Calls[0].Arguments)
	}

	result, ok := loaded.Messages[3].(llm.ToolMessage)
	if !ok {
		t.Fatalf("message 3 is %T, want ToolMessage", loaded.Messages[3])
	}
	if result.Results[0].Result != "a.txt\n" {
		t.Fatalf("tool result lost payload: %+v", result.Results[0])
	}

	final, ok := loaded.Messages[4].(llm.AssistantMessage)
	if !ok || final.Text != "one file: a.txt" {
		t.Fatalf("unexpected final message: %#v", loaded.Messages[4])
	}
}

func TestUpdateReplacesNotAppends(t *testing.T) {
	store := openTestStore(t)
	thread, err := store.Create("replace")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first := []llm.Message{llm.UserMessage{Text: "one"}, llm.AssistantMessage{Text: "two"}}
	if _, err := store.Update(thread.ID, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second := []llm.Message{llm.UserMessage{Text: "only"}}
	if _, err := store.Update(thread.ID, second); err != nil {
		t.Fatalf("second update: %v", err)
	}

	loaded, err := store.Get(thread.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Messages) != 1 {
		t.Fatalf("expected full replacement, got %d messages", len(loaded.Messages))
	}
}

func TestUpdateMissingThread(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Update("no-such-id", []llm.Message{llm.UserMessage{Text: "hi"}})
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestListOrdersByRecencyAndBounds(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < recentThreadLimit+5; i++ {
		if _, err := store.Create(fmt.Sprintf("thread-%d", i)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	oldest, err := store.Create("bumped")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(oldest.ID, []llm.Message{llm.UserMessage{Text: "bump"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != recentThreadLimit {
		t.Fatalf("expected list bounded to %d, got %d", recentThreadLimit, len(infos))
	}
	if infos[0].ID != oldest.ID {
		t.Fatalf("expected most recently updated first, got %q", infos[0].Name)
	}
	if infos[0].MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", infos[0].MessageCount)
	}
}

func TestRename(t *testing.T) {
	store := openTestStore(t)
	thread, err := store.Create("before")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	renamed, err := store.Rename(thread.ID, "after")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "after" {
		t.Fatalf("expected new name, got %q", renamed.Name)
	}

	if _, err := store.Rename("no-such-id", "x"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestDeleteRemovesThreadAndMessages(t *testing.T) {
	store := openTestStore(t)
	thread, err := store.Create("doomed")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(thread.ID, []llm.Message{llm.UserMessage{Text: "hi"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	deleted, err := store.Delete(thread.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report true")
	}

	if _, err := store.Get(thread.ID); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected thread gone, got %v", err)
	}

	var orphans int64
	if err := store.db.Model(&messageRecord{}).Where("thread_id = ?", thread.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected no orphaned messages, got %d", orphans)
	}
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	store := openTestStore(t)
	deleted, err := store.Delete("no-such-id")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Fatal("expected false for missing thread")
	}
}

func TestMalformedToolPayloadDegradesToAssistantText(t *testing.T) {
	store := openTestStore(t)
	thread, err := store.Create("corrupt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	row := messageRecord{ThreadID: thread.ID, Role: string(llm.RoleToolCall), Content: "{not json"}
	if err := store.db.Create(&row).Error; err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	loaded, err := store.Get(thread.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	msg, ok := loaded.Messages[0].(llm.AssistantMessage)
	if !ok {
		t.Fatalf("expected degrade to AssistantMessage, got %T", loaded.Messages[0])
	}
	if msg.Text != "{not json" {
		t.Fatalf("degraded message lost content: %q", msg.Text)
	}
}
