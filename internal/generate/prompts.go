package generate

import (
	"fmt"
	"strings"

	"github.com/spielleiter/grimoire/internal/campaign"
)

// defaultWorldDescription mirrors the chat engine's fallback world.
const defaultWorldDescription = "Eine klassische Fantasywelt mit Magie, Monstern und Abenteuern."

func worldOrDefault(doc *campaign.Document) string {
	if strings.TrimSpace(doc.WorldDescription) == "" {
		return defaultWorldDescription
	}
	return doc.WorldDescription
}

// jsonOnlyInstruction is the shared preamble demanding a bare JSON reply.
const jsonOnlyInstruction = "Du MUSST NUR ein gültiges JSON-Objekt zurückgeben (kein Markdown, keine Codeblöcke, keine Erklärungen) mit genau dieser Struktur:"

func buildNPCPrompt(doc *campaign.Document, req NPCRequest, danger campaign.DangerLevel) string {
	var sb strings.Builder

	sb.WriteString("Du bist ein kreativer Spielleiter für ein Pen-&-Paper-Fantasy-Rollenspiel. Erzeuge einen detaillierten Nichtspielercharakter (NSC/NPC) basierend auf den folgenden Informationen.\n\n")
	fmt.Fprintf(&sb, "WELTENBESCHREIBUNG:\n%s\n\n", worldOrDefault(doc))
	fmt.Fprintf(&sb, "GEBIET/AUFENTHALTSORT:\n%s\n\n", doc.AreaName(req.Area))

	sb.WriteString("NPC-ANFRAGE:\n")
	fmt.Fprintf(&sb, "- Rolle/Beruf: %s\n", req.Role)
	if req.Archetype != "" {
		fmt.Fprintf(&sb, "- Archetyp: %s\n", req.Archetype)
	}
	fmt.Fprintf(&sb, "- Gefährlichkeitsgrad: %s\n", danger)
	fmt.Fprintf(&sb, "- Kurze Idee vom Spielleiter: %s\n\n", req.Description)

	sb.WriteString("Erzeuge einen NPC, der natürlich in diese Welt und dieses Gebiet passt. Der NPC sollte sich im beschriebenen Setting glaubwürdig und fundiert anfühlen und am Spieltisch nützlich sein.\n\n")

	sb.WriteString(jsonOnlyInstruction + "\n")
	fmt.Fprintf(&sb, `{
  "name": "Vollständiger Name des NPCs",
  "role": %q,
  "summary": "Kurze Zusammenfassung in 1-2 Sätzen, wer dieser NPC ist und was ihn auszeichnet",
  "appearance": "Detaillierte Beschreibung des Aussehens: Körperbau, Kleidung, Haltung, Stimme, auffällige Merkmale. 2-3 Sätze auf Deutsch.",
  "personality": "Persönlichkeit, typische Verhaltensweisen, wie der NPC auf Fremde reagiert, Eigenheiten. 2-3 Sätze auf Deutsch.",
  "motivations": "Was treibt diesen NPC an? Was will er erreichen, beschützen oder vermeiden? Ängste und Ziele. 2-3 Sätze auf Deutsch.",
  "hooks": [
    "Erster Aufhänger/Plotidee für den Spielleiter",
    "Zweiter Aufhänger/Plotidee",
    "Dritter Aufhänger/Plotidee"
  ],
  "dangerLevel": %q,
  "combatNotes": "Kurze Kampfbeschreibung: Wie gefährlich ist der NPC? Waffen, Kampfstil, oder ob er überhaupt kämpft. 1-2 Sätze auf Deutsch."
}`, req.Role, danger)

	sb.WriteString(`

WICHTIG:
- Alle Texte müssen auf Deutsch sein
- Der Name sollte zur Welt und zum Gebiet passen
- Die Aufhänger (hooks) sollten 2-4 konkrete Ideen sein, wie der Spielleiter den NPC in eine Geschichte einbinden kann
- Die Persönlichkeit sollte spielbar und interessant sein
- Die Kampfnotizen sollten zum Gefährlichkeitsgrad passen:
  - "harmlos": Kämpft nicht, flieht oder versteckt sich
  - "unterstützend": Kann helfen, aber kein Kämpfer
  - "potenziell gefährlich": Kann sich verteidigen, mittelmäßiger Kämpfer
  - "sehr gefährlich": Erfahrener Kämpfer, echte Bedrohung`)

	return sb.String()
}

// statGuide gives difficulty-scaled stat guidance for monster generation.
type statGuide struct {
	label                string
	hpMin, hpMax         int
	acMin, acMax         int
	toHitMin, toHitMax   int
	damageMin, damageMax int
}

// difficultyGuide maps a difficulty keyword to its stat guidance. Unknown
// difficulties get the medium guidance.
func difficultyGuide(difficulty string) statGuide {
	switch difficulty {
	case "easy":
		return statGuide{"Leicht", 10, 30, 10, 13, 2, 4, 4, 8}
	case "hard":
		return statGuide{"Schwer", 60, 120, 14, 17, 6, 9, 15, 30}
	case "deadly":
		return statGuide{"Tödlich", 100, 200, 16, 20, 8, 12, 25, 50}
	default:
		return statGuide{"Mittel", 30, 60, 12, 15, 4, 6, 8, 15}
	}
}

func buildMonsterPrompt(doc *campaign.Document, req MonsterRequest, guide statGuide) string {
	var sb strings.Builder

	sb.WriteString("Du bist ein kreativer Monsterdesigner für ein Tischrollenspiel. Erzeuge ein detailliertes Monster basierend auf den folgenden Informationen.\n\n")
	fmt.Fprintf(&sb, "WELTENBESCHREIBUNG:\n%s\n\n", worldOrDefault(doc))
	fmt.Fprintf(&sb, "GEBIET/TERRAIN:\n%s\n\n", doc.AreaName(req.Area))

	tags := "Jeder passende Typ"
	if len(req.Tags) > 0 {
		tags = strings.Join(req.Tags, ", ")
	}
	sb.WriteString("MONSTERANFRAGE:\n")
	fmt.Fprintf(&sb, "- Beschreibung: %s\n", req.Description)
	fmt.Fprintf(&sb, "- Schwierigkeitsgrad: %s\n", guide.label)
	fmt.Fprintf(&sb, "- Vorgeschlagene Typen/Tags: %s\n\n", tags)

	sb.WriteString("WERTE-RICHTLINIEN (passe sie an das Monsterkonzept an):\n")
	fmt.Fprintf(&sb, "- TP (Trefferpunkte): %d-%d\n", guide.hpMin, guide.hpMax)
	fmt.Fprintf(&sb, "- RK (Rüstungsklasse): %d-%d\n", guide.acMin, guide.acMax)
	fmt.Fprintf(&sb, "- Angriffsbonus: +%d bis +%d\n", guide.toHitMin, guide.toHitMax)
	fmt.Fprintf(&sb, "- Schaden pro Treffer: %d-%d\n\n", guide.damageMin, guide.damageMax)

	sb.WriteString("Erzeuge ein Monster, das natürlich in diese Welt und dieses Gebiet passt. Das Monster sollte sich im beschriebenen Setting glaubwürdig und fundiert anfühlen.\n\n")
	sb.WriteString("Nutze die Weltenbeschreibung und das Gebiet, damit das Monster thematisch dazu passt.\n\n")

	sb.WriteString(jsonOnlyInstruction + "\n")
	sb.WriteString(`{
  "name": "Name des Monsters",
  "summary": "Einzeilige, stimmungsvolle Zusammenfassung des Monsters (max. 100 Zeichen, auf Deutsch)",
  "appearance": "Eine detaillierte Beschreibung des physischen Erscheinungsbilds des Monsters in 2-3 Absätzen auf Deutsch.",
  "hp": <Zahl>,
  "ac": <Zahl>,
  "speed": "<Bewegungsbeschreibung, z.B. '9 m, Klettern 6 m'>",
  "attacks": [
    {
      "name": "<Angriffsname auf Deutsch>",
      "toHit": "+<Zahl>",
      "damage": "<Würfelausdruck, z.B. '2W6+3 Hiebschaden'>",
      "effect": "<optionaler Spezialeffekt oder Zustand auf Deutsch>"
    }
  ],
  "abilities": [
    {
      "name": "<Fähigkeitsname auf Deutsch>",
      "description": "<was die Fähigkeit bewirkt, auf Deutsch>"
    }
  ],
  "tags": ["<Typ1>", "<Typ2>"]
}

WICHTIG:
- Alle Beschreibungen müssen auf Deutsch sein
- Füge 1-3 Angriffe hinzu, je nach Schwierigkeitsgrad
- Füge 1-4 besondere Fähigkeiten hinzu, je nach Schwierigkeitsgrad
- Das Aussehen sollte lebendig und eindrucksvoll sein
- Tags sollten den Kreaturentyp (Tier, Untoter, usw.) und relevante Schlüsselwörter enthalten
- Mache Angriffe und Fähigkeiten thematisch passend zum Monsterkonzept`)

	return sb.String()
}

// levels is an inclusive character level range.
type levels struct {
	min, max int
}

// levelRange maps a power level keyword to its level range. Unknown keywords
// get the medium range.
func levelRange(powerLevel string) levels {
	switch powerLevel {
	case "low":
		return levels{1, 4}
	case "high":
		return levels{11, 20}
	default:
		return levels{5, 10}
	}
}

// suggestedClasses maps a party role to German class suggestions.
func suggestedClasses(role string) []string {
	switch role {
	case "warrior":
		return []string{"Kämpfer", "Barbar", "Paladin", "Ritter"}
	case "mage":
		return []string{"Magier", "Hexenmeister", "Zauberer", "Elementarist"}
	case "rogue":
		return []string{"Schurke", "Assassine", "Dieb", "Schattenläufer"}
	case "support":
		return []string{"Kleriker", "Barde", "Druide", "Heiler"}
	case "ranger":
		return []string{"Waldläufer", "Jäger", "Späher", "Bogenschütze"}
	case "cleric":
		return []string{"Kleriker", "Priester", "Paladin", "Templer"}
	default:
		return []string{"Abenteurer"}
	}
}

func buildCharacterPrompt(req CharacterRequest, lv levels, classes []string) string {
	var sb strings.Builder

	sb.WriteString("Du bist ein kreativer Charaktergenerator für Pen-&-Paper-Rollenspiele. Erzeuge einen detaillierten Charakter basierend auf den folgenden Informationen.\n\n")
	fmt.Fprintf(&sb, "WELTENBESCHREIBUNG:\n%s\n\n", req.WorldDescription)

	sb.WriteString("CHARAKTERANFRAGE:\n")
	if req.Name != "" {
		fmt.Fprintf(&sb, "- Gewünschter Name: %s\n", req.Name)
	} else {
		sb.WriteString("- Erzeuge einen passenden Namen\n")
	}
	fmt.Fprintf(&sb, "- Beschreibung: %s\n", req.Description)
	fmt.Fprintf(&sb, "- Rolle/Archetyp: %s\n", req.Role)
	fmt.Fprintf(&sb, "- Machtstufe: %s (Stufenbereich: %d-%d)\n", req.PowerLevel, lv.min, lv.max)
	fmt.Fprintf(&sb, "- Vorgeschlagene Klassen: %s\n\n", strings.Join(classes, ", "))

	sb.WriteString("Erzeuge einen Charakter, der natürlich in diese Welt passt. Der Charakter sollte sich im beschriebenen Setting glaubwürdig und fundiert anfühlen.\n\n")

	sb.WriteString(jsonOnlyInstruction + "\n")
	fmt.Fprintf(&sb, `{
  "name": "Vollständiger Name des Charakters",
  "summary": "Einzeilige Zusammenfassung, wer dieser Charakter ist (max. 100 Zeichen)",
  "stats": {
    "level": <Zahl zwischen %d und %d>,
    "class": "<Klasse, die zur Welt und Rolle passt>",
    "race": "<Volk/Spezies, die in dieser Welt existiert>",
    "strength": <8-18>,
    "dexterity": <8-18>,
    "constitution": <8-18>,
    "intelligence": <8-18>,
    "wisdom": <8-18>,
    "charisma": <8-18>
  },
  "appearance": "Eine reichhaltige, detaillierte Beschreibung des physischen Erscheinungsbilds des Charakters. Schreibe 2-3 detaillierte Absätze auf Deutsch.",
  "backstory": "2-3 Absätze auf Deutsch, die die Geschichte, Motivationen und Persönlichkeit des Charakters beschreiben."
}`, lv.min, lv.max)

	sb.WriteString(`

WICHTIG:
- Alle Texte (summary, appearance, backstory, class, race) müssen auf Deutsch sein
- Die Werte sollten die Rolle des Charakters widerspiegeln (Krieger haben höhere STÄ, Magier höhere INT, usw.)
- Die Summe aller sechs Attributswerte sollte zwischen 70-80 liegen für gute Balance
- Die Hintergrundgeschichte sollte spezifisch auf die Weltenbeschreibung Bezug nehmen
- Das Aussehen sollte lebendig und eindrucksvoll sein, ein klares Bild davon malen, wie der Charakter aussieht`)

	return sb.String()
}

func buildTableRowsPrompt(doc *campaign.Document, req TableRowsRequest) string {
	var sb strings.Builder

	sb.WriteString("Du bist ein kreativer Spielleiter für ein Tischrollenspiel. Erzeuge eine W20-Zufallstabelle basierend auf den folgenden Informationen.\n\n")
	fmt.Fprintf(&sb, "WELTENBESCHREIBUNG:\n%s\n\n", worldOrDefault(doc))
	if req.Area != "" {
		fmt.Fprintf(&sb, "GEBIET/TERRAIN: %s\n\n", doc.AreaName(req.Area))
	}
	fmt.Fprintf(&sb, "TABELLENZWECK:\n%s\n\n", req.Description)

	sb.WriteString(`Dies ist eine Ereignistabelle / Zufallstabelle für einen W20-Wurf.

Erzeuge genau 10 Ergebnisse für eine W20-Tabelle, die den gesamten Bereich mit diesen zusammenhängenden Bereichen abdeckt:
1-2, 3-4, 5-6, 7-8, 9-10, 11-12, 13-14, 15-16, 17-18, 19-20

Die Ergebnisse sollten von schlecht/negativ (niedrige Würfe) zu gut/positiv (hohe Würfe) fortschreiten, mit einigen neutralen oder gemischten Ergebnissen in der Mitte.

Du MUSST NUR ein gültiges JSON-Array zurückgeben (kein Markdown, keine Codeblöcke, keine Erklärungen) mit genau 10 Einträgen in dieser Struktur:
[
  {
    "start": 1,
    "end": 2,
    "title": "Kurzer Titel für dieses Ergebnis auf Deutsch",
    "description": "1-3 Sätze auf Deutsch, die beschreiben, was mechanisch oder erzählerisch passiert."
  },
  {
    "start": 3,
    "end": 4,
    "title": "...",
    "description": "..."
  }
]

WICHTIG:
- Alle Titel und Beschreibungen müssen auf Deutsch sein
- Erzeuge genau 10 Einträge
- Verwende die exakten Bereiche: 1-2, 3-4, 5-6, 7-8, 9-10, 11-12, 13-14, 15-16, 17-18, 19-20
- Mache die Ergebnisse thematisch passend zum Tabellenzweck und Gebiet
- Niedrige Würfe (1-6) sollten generell negativ oder gefährlich sein
- Mittlere Würfe (7-14) sollten neutral oder gemischt sein
- Hohe Würfe (15-20) sollten positiv oder vorteilhaft sein
- 19-20 sollte außergewöhnlich gut sein`)

	return sb.String()
}
