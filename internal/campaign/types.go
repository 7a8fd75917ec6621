// Package campaign defines the persistent data model for a Grimoire campaign
// and the Store abstraction that owns it.
//
// A campaign is a single [Document] holding every entity collection — areas,
// monsters, player characters, NPCs, and random tables — plus the free-text
// world description. The document is the unit of persistence: stores load and
// save it whole, and per-NPC helpers perform read-modify-write updates on top
// of that.
package campaign

import (
	"errors"
	"fmt"
)

// ChatRole identifies the speaker of a chat message.
type ChatRole string

const (
	// RolePlayer marks a message typed by the player at the table.
	RolePlayer ChatRole = "player"

	// RoleNPC marks a message generated on behalf of the NPC.
	RoleNPC ChatRole = "npc"
)

// IsValid reports whether r is a recognised chat role.
func (r ChatRole) IsValid() bool {
	return r == RolePlayer || r == RoleNPC
}

// ChatMessage is a single utterance in an NPC conversation. Messages are
// immutable once created; ordering is by Timestamp, with the guarantee that
// an NPC reply's timestamp is strictly greater than the triggering player
// message's timestamp.
type ChatMessage struct {
	// Role is the speaker: RolePlayer or RoleNPC.
	Role ChatRole `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is the creation time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// ChatState is the bounded conversational memory of one NPC: a running
// summary of everything compacted away plus the verbatim tail of the
// conversation.
type ChatState struct {
	// MemorySummary is the progressively updated summary of older turns.
	// Empty until the first compaction. Each compaction replaces it whole.
	MemorySummary string `json:"memorySummary"`

	// RecentMessages is the verbatim message buffer, ordered oldest to
	// newest.
	RecentMessages []ChatMessage `json:"recentMessages"`
}

// Voice is an NPC's text-to-speech voice preference. It is carried as data
// for the TTS frontend; the server itself never synthesises audio.
type Voice string

const (
	VoiceMaleEpic   Voice = "male_epic"
	VoiceFemaleEpic Voice = "female_epic"
)

// IsValid reports whether v is a recognised voice preference.
func (v Voice) IsValid() bool {
	return v == VoiceMaleEpic || v == VoiceFemaleEpic
}

// DangerLevel grades how dangerous an NPC or encounter is. Values are the
// German labels used throughout the campaign data.
type DangerLevel string

const (
	DangerHarmless   DangerLevel = "harmlos"
	DangerSupportive DangerLevel = "unterstützend"
	DangerPotential  DangerLevel = "potenziell gefährlich"
	DangerSevere     DangerLevel = "sehr gefährlich"
)

// IsValid reports whether d is a recognised danger level.
func (d DangerLevel) IsValid() bool {
	switch d {
	case DangerHarmless, DangerSupportive, DangerPotential, DangerSevere:
		return true
	}
	return false
}

// Area is a region of the campaign world that entities reference by ID.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// MonsterAttack is a single attack option in a monster's stat block.
type MonsterAttack struct {
	Name   string `json:"name"`
	ToHit  string `json:"toHit"`
	Damage string `json:"damage"`
	Effect string `json:"effect,omitempty"`
}

// MonsterAbility is a passive or active special ability of a monster.
type MonsterAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Monster is a bestiary entry.
type Monster struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Summary    string           `json:"summary"`
	Area       string           `json:"area"`
	Difficulty string           `json:"difficulty"`
	Appearance string           `json:"appearance"`
	HP         int              `json:"hp"`
	AC         int              `json:"ac"`
	Speed      string           `json:"speed"`
	Attacks    []MonsterAttack  `json:"attacks"`
	Abilities  []MonsterAbility `json:"abilities"`
	Tags       []string         `json:"tags"`
}

// CharacterStats is the ability block of a player character.
type CharacterStats struct {
	Level        int    `json:"level"`
	Class        string `json:"class"`
	Race         string `json:"race"`
	Strength     int    `json:"strength"`
	Dexterity    int    `json:"dexterity"`
	Constitution int    `json:"constitution"`
	Intelligence int    `json:"intelligence"`
	Wisdom       int    `json:"wisdom"`
	Charisma     int    `json:"charisma"`
}

// Character is a player character record.
type Character struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Summary    string         `json:"summary"`
	Stats      CharacterStats `json:"stats"`
	Appearance string         `json:"appearance"`
	Backstory  string         `json:"backstory"`
}

// NPC is a non-player character. The NPC record is the unit of persistence
// for conversational memory: ChatState is created lazily on the first chat
// turn and lives and dies with the NPC.
type NPC struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Area        string      `json:"area"`
	Role        string      `json:"role"`
	Summary     string      `json:"summary"`
	Appearance  string      `json:"appearance"`
	Personality string      `json:"personality"`
	Motivations string      `json:"motivations"`
	Hooks       []string    `json:"hooks"`
	DangerLevel DangerLevel `json:"dangerLevel"`
	CombatNotes string      `json:"combatNotes"`

	// Voice is the optional TTS voice preference.
	Voice Voice `json:"voice,omitempty"`

	// ChatState is the NPC's conversational memory. Nil until the first
	// chat turn is processed.
	ChatState *ChatState `json:"chatState,omitempty"`
}

// Validate checks the NPC for logical consistency. It returns a joined error
// describing every violation found, or nil if the NPC is valid.
func (n *NPC) Validate() error {
	var errs []error

	if n.Name == "" {
		errs = append(errs, fmt.Errorf("campaign: npc name must not be empty"))
	}
	if n.DangerLevel != "" && !n.DangerLevel.IsValid() {
		errs = append(errs, fmt.Errorf("campaign: npc danger level %q is invalid", n.DangerLevel))
	}
	if n.Voice != "" && !n.Voice.IsValid() {
		errs = append(errs, fmt.Errorf("campaign: npc voice %q is invalid", n.Voice))
	}

	return errors.Join(errs...)
}

// TableRow is one dice range of a random table.
type TableRow struct {
	ID          string `json:"id"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RandomTable is a rollable table of results, optionally bound to an area.
type RandomTable struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Area        string     `json:"area,omitempty"`
	Description string     `json:"description"`
	Rows        []TableRow `json:"rows"`
}

// Document is the complete campaign: every entity collection plus the world
// description. It is persisted as one unit.
type Document struct {
	WorldDescription string        `json:"worldDescription"`
	Areas            []Area        `json:"areas"`
	Monsters         []Monster     `json:"monsters"`
	Characters       []Character   `json:"characters"`
	NPCs             []NPC         `json:"npcs"`
	Tables           []RandomTable `json:"tables"`
	MonsterTypes     []string      `json:"monsterTypes"`
}

// DefaultDocument returns a fresh campaign document with the starter areas
// and monster type list.
func DefaultDocument() *Document {
	return &Document{
		Areas: []Area{
			{ID: "cave", Name: "Höhle", Icon: "🕳️"},
			{ID: "forest", Name: "Wald", Icon: "🌲"},
			{ID: "mountains", Name: "Gebirge", Icon: "⛰️"},
			{ID: "lake", Name: "See", Icon: "🌊"},
			{ID: "city", Name: "Stadt", Icon: "🏰"},
		},
		Monsters:   []Monster{},
		Characters: []Character{},
		NPCs:       []NPC{},
		Tables:     []RandomTable{},
		MonsterTypes: []string{
			"Tier", "Untoter", "Humanoide", "Feenwesen", "Elementar",
			"Drache", "Dämon", "Konstrukt", "Aberration",
			"Himmlisches Wesen", "Pflanze", "Monstrosität",
		},
	}
}

// applyDefaults fills nil collections with the default document's values so
// that documents written by older versions always round-trip completely.
func (d *Document) applyDefaults() {
	def := DefaultDocument()
	if d.Areas == nil {
		d.Areas = def.Areas
	}
	if d.Monsters == nil {
		d.Monsters = def.Monsters
	}
	if d.Characters == nil {
		d.Characters = def.Characters
	}
	if d.NPCs == nil {
		d.NPCs = def.NPCs
	}
	if d.Tables == nil {
		d.Tables = def.Tables
	}
	if d.MonsterTypes == nil {
		d.MonsterTypes = def.MonsterTypes
	}
}

// FindNPC returns a pointer to the NPC with the given ID, or nil if absent.
func (d *Document) FindNPC(id string) *NPC {
	for i := range d.NPCs {
		if d.NPCs[i].ID == id {
			return &d.NPCs[i]
		}
	}
	return nil
}

// FindArea returns a pointer to the area with the given ID, or nil if absent.
func (d *Document) FindArea(id string) *Area {
	for i := range d.Areas {
		if d.Areas[i].ID == id {
			return &d.Areas[i]
		}
	}
	return nil
}

// AreaName resolves an area ID to its display name, falling back to the raw
// ID when the area record no longer exists.
func (d *Document) AreaName(id string) string {
	if a := d.FindArea(id); a != nil {
		return a.Name
	}
	return id
}
