package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/chat"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
	"github.com/spielleiter/grimoire/pkg/provider/llm/mock"
)

// turnMessages builds n alternating player/npc messages with increasing
// timestamps and numbered contents.
func turnMessages(n int) []campaign.ChatMessage {
	messages := make([]campaign.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := campaign.RolePlayer
		if i%2 == 1 {
			role = campaign.RoleNPC
		}
		messages = append(messages, campaign.ChatMessage{
			Role:      role,
			Content:   fmt.Sprintf("Nachricht %d", i),
			Timestamp: int64(1000 + i),
		})
	}
	return messages
}

func TestCompactorNoOpBelowBound(t *testing.T) {
	provider := &mock.Provider{}
	c, err := chat.NewCompactor(provider, 20)
	if err != nil {
		t.Fatalf("NewCompactor: %v", err)
	}

	state := campaign.ChatState{RecentMessages: turnMessages(20)}
	got, err := c.Compact(context.Background(), "Elira", state)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if len(got.RecentMessages) != 20 {
		t.Errorf("got %d messages, want 20", len(got.RecentMessages))
	}
	if provider.Calls() != 0 {
		t.Errorf("provider called %d times, want 0", provider.Calls())
	}
}

func TestCompactorFoldsOldMessages(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Der Spieler sucht das verlorene Amulett und hat Elira um Hilfe gebeten."},
	}
	c, err := chat.NewCompactor(provider, 20)
	if err != nil {
		t.Fatalf("NewCompactor: %v", err)
	}

	state := campaign.ChatState{
		MemorySummary:  "Alte Zusammenfassung.",
		RecentMessages: turnMessages(31),
	}
	got, err := c.Compact(context.Background(), "Elira", state)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	if len(got.RecentMessages) != 20 {
		t.Fatalf("got %d messages, want 20", len(got.RecentMessages))
	}
	// The kept tail is the newest 20 messages, order preserved.
	if got.RecentMessages[0].Content != "Nachricht 11" {
		t.Errorf("first kept message = %q, want %q", got.RecentMessages[0].Content, "Nachricht 11")
	}
	if got.RecentMessages[19].Content != "Nachricht 30" {
		t.Errorf("last kept message = %q, want %q", got.RecentMessages[19].Content, "Nachricht 30")
	}
	if got.MemorySummary != "Der Spieler sucht das verlorene Amulett und hat Elira um Hilfe gebeten." {
		t.Errorf("summary = %q, want the new summary", got.MemorySummary)
	}
	if provider.Calls() != 1 {
		t.Errorf("provider called %d times, want 1", provider.Calls())
	}
}

func TestCompactorPromptContents(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Neue Zusammenfassung."},
	}
	c, _ := chat.NewCompactor(provider, 20)

	state := campaign.ChatState{
		MemorySummary:  "Bisherige Abenteuer.",
		RecentMessages: turnMessages(31),
	}
	if _, err := c.Compact(context.Background(), "Elira", state); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	prompt := provider.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, "BISHERIGE ERINNERUNGEN:\nBisherige Abenteuer.") {
		t.Error("prompt missing the previous summary block")
	}
	// The 11 oldest messages are summarised; the kept tail is not.
	if !strings.Contains(prompt, "Nachricht 10") {
		t.Error("prompt missing the newest message being folded away")
	}
	if strings.Contains(prompt, "Nachricht 11") {
		t.Error("prompt contains a message from the kept tail")
	}
	if !strings.Contains(prompt, "Elira") {
		t.Error("prompt missing the NPC name")
	}
}

func TestCompactorNoPreviousSummaryBlockWhenEmpty(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Zusammenfassung."},
	}
	c, _ := chat.NewCompactor(provider, 20)

	state := campaign.ChatState{RecentMessages: turnMessages(25)}
	if _, err := c.Compact(context.Background(), "Elira", state); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	prompt := provider.CompleteCalls[0].Req.Messages[0].Content
	if strings.Contains(prompt, "BISHERIGE ERINNERUNGEN") {
		t.Error("prompt contains a previous-summary block despite an empty summary")
	}
}

func TestCompactorKeepsSummaryOnEmptyCompletion(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "   "},
	}
	c, _ := chat.NewCompactor(provider, 20)

	state := campaign.ChatState{
		MemorySummary:  "Wertvolle Erinnerungen.",
		RecentMessages: turnMessages(25),
	}
	got, err := c.Compact(context.Background(), "Elira", state)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if got.MemorySummary != "Wertvolle Erinnerungen." {
		t.Errorf("summary = %q, want the previous summary kept", got.MemorySummary)
	}
	if len(got.RecentMessages) != 20 {
		t.Errorf("got %d messages, want 20", len(got.RecentMessages))
	}
}

func TestCompactorFailureLeavesStateUnchanged(t *testing.T) {
	provider := &mock.Provider{CompleteErr: errors.New("backend down")}
	c, _ := chat.NewCompactor(provider, 20)

	state := campaign.ChatState{
		MemorySummary:  "Alte Zusammenfassung.",
		RecentMessages: turnMessages(31),
	}
	got, err := c.Compact(context.Background(), "Elira", state)
	if err == nil {
		t.Fatal("Compact succeeded, want error")
	}
	if got.MemorySummary != state.MemorySummary {
		t.Errorf("summary changed to %q", got.MemorySummary)
	}
	if len(got.RecentMessages) != len(state.RecentMessages) {
		t.Errorf("buffer length changed to %d, want %d", len(got.RecentMessages), len(state.RecentMessages))
	}
}

func TestNewCompactorValidation(t *testing.T) {
	if _, err := chat.NewCompactor(nil, 20); err == nil {
		t.Error("nil provider accepted")
	}
	if _, err := chat.NewCompactor(&mock.Provider{}, 0); err == nil {
		t.Error("zero maxRecent accepted")
	}
}
