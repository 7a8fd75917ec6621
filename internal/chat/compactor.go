package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
)

// summaryMaxTokens caps the summarization completion. The prompt asks for
// 2-4 sentences, so this is generous headroom rather than a target.
const summaryMaxTokens = 512

// Compactor keeps an NPC's active context bounded by folding the oldest
// messages of the recent buffer into the running memory summary via one
// generation call.
//
// A Compactor is stateless and safe for concurrent use.
type Compactor struct {
	provider  llm.Provider
	maxRecent int
}

// NewCompactor creates a Compactor that retains maxRecent messages verbatim
// after each compaction. maxRecent must be positive.
func NewCompactor(provider llm.Provider, maxRecent int) (*Compactor, error) {
	if provider == nil {
		return nil, fmt.Errorf("chat: compactor provider must not be nil")
	}
	if maxRecent <= 0 {
		return nil, fmt.Errorf("chat: compactor maxRecent must be positive, got %d", maxRecent)
	}
	return &Compactor{provider: provider, maxRecent: maxRecent}, nil
}

// Compact partitions the memory's buffer into the last maxRecent messages
// (kept verbatim) and everything older, summarises the older part together
// with the previous summary, and returns the new bounded memory.
//
// The new summary replaces the old one; the old summary is input context for
// the model, not retained verbatim afterwards. If there is nothing older
// than the retained tail, the memory is returned unchanged without a
// generation call.
//
// On generation failure, compaction fails as a unit and the input memory is
// returned unchanged — the caller decides how to degrade.
func (c *Compactor) Compact(ctx context.Context, npcName string, state campaign.ChatState) (campaign.ChatState, error) {
	if len(state.RecentMessages) <= c.maxRecent {
		return state, nil
	}

	cut := len(state.RecentMessages) - c.maxRecent
	toSummarize := state.RecentMessages[:cut]
	toKeep := state.RecentMessages[cut:]

	prompt := buildSummarizePrompt(npcName, state.MemorySummary, toSummarize)

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return state, fmt.Errorf("chat: summarize: %w", err)
	}

	var newSummary string
	if resp != nil {
		newSummary = strings.TrimSpace(resp.Content)
	}
	if newSummary == "" {
		// An empty summary would silently drop everything the NPC knows;
		// keep the previous one instead.
		newSummary = state.MemorySummary
	}

	kept := make([]campaign.ChatMessage, len(toKeep))
	copy(kept, toKeep)

	return campaign.ChatState{
		MemorySummary:  newSummary,
		RecentMessages: kept,
	}, nil
}

// buildSummarizePrompt renders the summarization instruction: the previous
// summary (if any) labeled as prior memory, the transcript of the messages
// being folded away, and the focus list for what to preserve.
func buildSummarizePrompt(npcName, previousSummary string, toSummarize []campaign.ChatMessage) string {
	var sb strings.Builder

	sb.WriteString("Du bist ein Assistent, der Gespräche zusammenfasst.\n\n")
	fmt.Fprintf(&sb, "Fasse das folgende Gespräch zwischen dem Spieler und dem NPC %q auf Deutsch zusammen.\n", npcName)
	sb.WriteString("Fokussiere dich auf:\n")
	sb.WriteString("- Was der NPC über den Spieler gelernt hat\n")
	sb.WriteString("- Laufende Quests, Versprechen, Geheimnisse oder Konflikte\n")
	sb.WriteString("- Wichtige Fakten, die für zukünftige Gespräche relevant sind\n\n")

	if previousSummary != "" {
		fmt.Fprintf(&sb, "BISHERIGE ERINNERUNGEN:\n%s\n\n", previousSummary)
	}

	fmt.Fprintf(&sb, "NEUE NACHRICHTEN ZUM ZUSAMMENFASSEN:\n%s\n\n", renderTranscript(toSummarize, npcName))
	sb.WriteString("Gib NUR die aktualisierte Zusammenfassung zurück (2-4 Sätze auf Deutsch), keine Erklärungen:")

	return sb.String()
}
