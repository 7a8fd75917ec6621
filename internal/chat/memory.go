// Package chat implements the NPC conversational-memory engine: the bounded,
// progressively-summarized dialogue history that lets an NPC hold an
// unbounded conversation against a fixed-size context budget.
//
// The engine has four parts. The memory helpers in this file manage the
// per-NPC message buffer; BuildPersonaPrompt renders the static persona
// block; the Compactor folds old turns into the running summary; and the
// Orchestrator sequences a whole chat turn, from prompt assembly through
// generation, memory mutation, compaction, and persistence.
package chat

import (
	"strings"

	"github.com/spielleiter/grimoire/internal/campaign"
)

// Default bounds for the recent-message buffer. A turn that pushes the
// buffer past the threshold triggers compaction, which shrinks it back to
// the retained maximum.
const (
	// DefaultMaxRecentMessages is the number of messages kept verbatim
	// after a compaction.
	DefaultMaxRecentMessages = 20

	// DefaultSummarizeThreshold is the buffer length that triggers
	// compaction. Must be greater than DefaultMaxRecentMessages.
	DefaultSummarizeThreshold = 30
)

// EmptyMemory returns a fresh conversational memory with no summary and no
// messages.
func EmptyMemory() campaign.ChatState {
	return campaign.ChatState{RecentMessages: []campaign.ChatMessage{}}
}

// AppendTurn returns a new memory with one player message and one NPC reply
// appended, in that order. The input memory is not mutated.
//
// The player message is stamped with now (milliseconds) and the NPC reply
// with now+1, so the reply always orders strictly after the message that
// triggered it even when the clock has millisecond-granularity collisions.
// If now is not past the newest existing message, both stamps are shifted
// forward so no new message ever orders before an old one.
func AppendTurn(state campaign.ChatState, player, npc string, now int64) campaign.ChatState {
	if n := len(state.RecentMessages); n > 0 {
		if last := state.RecentMessages[n-1].Timestamp; now < last {
			now = last
		}
	}

	messages := make([]campaign.ChatMessage, 0, len(state.RecentMessages)+2)
	messages = append(messages, state.RecentMessages...)
	messages = append(messages,
		campaign.ChatMessage{Role: campaign.RolePlayer, Content: player, Timestamp: now},
		campaign.ChatMessage{Role: campaign.RoleNPC, Content: npc, Timestamp: now + 1},
	)

	return campaign.ChatState{
		MemorySummary:  state.MemorySummary,
		RecentMessages: messages,
	}
}

// cloneMemory returns a deep copy of the NPC's memory, or an empty memory
// when the NPC has none yet.
func cloneMemory(npc *campaign.NPC) campaign.ChatState {
	if npc.ChatState == nil {
		return EmptyMemory()
	}
	messages := make([]campaign.ChatMessage, len(npc.ChatState.RecentMessages))
	copy(messages, npc.ChatState.RecentMessages)
	return campaign.ChatState{
		MemorySummary:  npc.ChatState.MemorySummary,
		RecentMessages: messages,
	}
}

// renderTranscript renders messages as an alternating player/NPC transcript,
// one line per message, using the German player label and the NPC's name.
func renderTranscript(messages []campaign.ChatMessage, npcName string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == campaign.RolePlayer {
			lines = append(lines, "Spieler: "+m.Content)
		} else {
			lines = append(lines, npcName+": "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// CleanReply normalises a raw model completion into the NPC's spoken line.
// It trims surrounding whitespace and strips at most one occurrence of the
// exact "<name>:" prefix — a common artifact of completion-style
// continuation — without touching in-character dialogue that merely mentions
// the NPC's name.
func CleanReply(raw, npcName string) string {
	reply := strings.TrimSpace(raw)
	if prefix := npcName + ":"; strings.HasPrefix(reply, prefix) {
		reply = strings.TrimSpace(reply[len(prefix):])
	}
	return reply
}
