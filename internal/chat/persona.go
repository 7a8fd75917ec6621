package chat

import (
	"fmt"
	"strings"

	"github.com/spielleiter/grimoire/internal/campaign"
)

// defaultWorldDescription is the generic world fallback used when the
// campaign has no world description yet.
const defaultWorldDescription = "Eine klassische Fantasywelt mit Magie, Monstern und Abenteuern."

// BuildPersonaPrompt renders the static persona block for an NPC chat turn:
// world context, location, role, personality, appearance, motivations, danger
// level and combat notes, followed by a fixed set of behavioural
// instructions.
//
// The builder is pure and deterministic. It never renders the recent-message
// buffer or the player's new message — the orchestrator concatenates those
// afterwards. The memory summary is likewise rendered by the orchestrator;
// it is passed here only so the instruction to consult it can be included
// exactly when a summary exists.
func BuildPersonaPrompt(npc *campaign.NPC, areaName, worldDescription, memorySummary string) string {
	if strings.TrimSpace(worldDescription) == "" {
		worldDescription = defaultWorldDescription
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Du bist %s, ein NPC (Nichtspielercharakter) in einem Pen-&-Paper-Fantasy-Rollenspiel.\n\n", npc.Name)

	fmt.Fprintf(&sb, "WELTENBESCHREIBUNG:\n%s\n\n", worldDescription)
	fmt.Fprintf(&sb, "DEIN AUFENTHALTSORT:\n%s\n\n", areaName)
	fmt.Fprintf(&sb, "DEINE ROLLE / BERUF:\n%s\n\n", npc.Role)
	fmt.Fprintf(&sb, "DEINE PERSÖNLICHKEIT:\n%s\n\n", npc.Personality)
	fmt.Fprintf(&sb, "DEIN AUSSEHEN:\n%s\n\n", npc.Appearance)
	fmt.Fprintf(&sb, "DEINE ZIELE UND MOTIVATIONEN:\n%s\n\n", npc.Motivations)

	fmt.Fprintf(&sb, "DEINE GEFÄHRLICHKEIT:\n%s\n", npc.DangerLevel)
	if npc.CombatNotes != "" {
		fmt.Fprintf(&sb, "Kampfnotizen: %s\n", npc.CombatNotes)
	}

	sb.WriteString("\nWICHTIGE ANWEISUNGEN:\n")
	sb.WriteString("- Antworte IMMER auf Deutsch.\n")
	sb.WriteString("- Bleib konsequent in der Rolle dieses NPCs.\n")
	fmt.Fprintf(&sb, "- Sprich als %s, nicht als Erzähler.\n", npc.Name)
	if memorySummary != "" {
		sb.WriteString("- Nutze die Erinnerungszusammenfassung, um dich an frühere Ereignisse zu erinnern.\n")
	}
	sb.WriteString("- Sei konsistent mit deiner Persönlichkeit und deinen Zielen.\n")
	sb.WriteString("- Halte deine Antworten natürlich und passend zur Spielsituation.\n")
	sb.WriteString("- Antworte in 1-3 Sätzen, außer die Situation erfordert eine längere Erklärung.")

	return sb.String()
}
