// Package generate produces campaign content — NPCs, monsters, player
// characters, and random tables — from short game-master prompts via a single
// LLM completion per request.
//
// Every operation follows the same shape: validate the request, render a
// German instruction prompt that embeds the world description, call the
// provider once, extract the JSON payload from the completion, and normalise
// it into a campaign entity with defaults filled in for anything the model
// omitted. Generated entities are returned to the caller; persisting them is
// the API layer's concern.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/chat"
	"github.com/spielleiter/grimoire/internal/observe"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
)

// ValidationError reports a missing or invalid field in a generation request.
type ValidationError struct {
	// Field names the offending request field.
	Field string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("generate: %s is required", e.Field)
}

// Generator creates campaign entities through an LLM provider.
type Generator struct {
	provider llm.Provider
	timeout  time.Duration
	metrics  *observe.Metrics
}

// Config holds the dependencies for a [Generator]. Provider is required;
// Timeout bounds each completion call (zero means no timeout beyond the
// caller's context); Metrics defaults to the package-level instruments.
type Config struct {
	Provider llm.Provider
	Timeout  time.Duration
	Metrics  *observe.Metrics
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("generate: Provider must not be nil")
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Generator{provider: cfg.Provider, timeout: cfg.Timeout, metrics: metrics}, nil
}

// complete runs one completion with the configured timeout and classifies
// failures into the shared generation error taxonomy.
func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	g.metrics.RecordGeneration(ctx, "content", time.Since(start).Seconds())

	if err != nil {
		genErr := chat.ClassifyGenerationError(err)
		g.metrics.RecordProviderError(ctx, string(genErr.Kind))
		return "", genErr
	}

	var content string
	if resp != nil {
		content = strings.TrimSpace(resp.Content)
	}
	if content == "" {
		g.metrics.RecordProviderError(ctx, string(chat.GenerationEmptyResponse))
		return "", &chat.GenerationError{Kind: chat.GenerationEmptyResponse}
	}
	return content, nil
}

// NPCRequest describes the NPC the game master wants.
type NPCRequest struct {
	// Area is the ID of the area the NPC lives in.
	Area string `json:"area"`

	// Role is the NPC's profession or function.
	Role string `json:"role"`

	// Archetype optionally narrows the character concept.
	Archetype string `json:"archetype,omitempty"`

	// DangerLevel defaults to harmless when empty.
	DangerLevel campaign.DangerLevel `json:"dangerLevel,omitempty"`

	// Description is the game master's short idea for the NPC.
	Description string `json:"description"`
}

// NPC generates a complete NPC record from the request, grounded in the
// campaign's world description and the requested area.
func (g *Generator) NPC(ctx context.Context, doc *campaign.Document, req NPCRequest) (*campaign.NPC, error) {
	if req.Area == "" {
		return nil, &ValidationError{Field: "area"}
	}
	if strings.TrimSpace(req.Role) == "" {
		return nil, &ValidationError{Field: "role"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, &ValidationError{Field: "description"}
	}

	danger := req.DangerLevel
	if danger == "" {
		danger = campaign.DangerHarmless
	}

	content, err := g.complete(ctx, buildNPCPrompt(doc, req, danger))
	if err != nil {
		return nil, err
	}

	var raw npcPayload
	if err := decodePayload(content, &raw); err != nil {
		return nil, err
	}

	npc := &campaign.NPC{
		ID:          uuid.NewString(),
		Name:        fallback(raw.Name, "Unbekannter NPC"),
		Area:        req.Area,
		Role:        fallback(raw.Role, req.Role),
		Summary:     fallback(raw.Summary, "Ein geheimnisvoller Charakter."),
		Appearance:  fallback(raw.Appearance, "Eine unauffällige Person."),
		Personality: fallback(raw.Personality, "Zurückhaltend und vorsichtig."),
		Motivations: fallback(raw.Motivations, "Überleben und ein ruhiges Leben führen."),
		Hooks:       raw.Hooks,
		DangerLevel: danger,
		CombatNotes: fallback(raw.CombatNotes, "Kämpft nicht."),
	}
	if len(npc.Hooks) == 0 {
		npc.Hooks = []string{"Könnte Informationen haben."}
	}
	if raw.DangerLevel.IsValid() {
		npc.DangerLevel = raw.DangerLevel
	}
	return npc, nil
}

// MonsterRequest describes the monster the game master wants.
type MonsterRequest struct {
	// Area is the ID of the area the monster is encountered in.
	Area string `json:"area"`

	// Difficulty is one of easy, medium, hard, deadly. Unknown values fall
	// back to medium stat guidance.
	Difficulty string `json:"difficulty"`

	// Description is the game master's short monster concept.
	Description string `json:"description"`

	// Tags suggests creature types; may be empty.
	Tags []string `json:"tags,omitempty"`
}

// Monster generates a complete bestiary entry from the request, with stat
// guidance scaled by the requested difficulty.
func (g *Generator) Monster(ctx context.Context, doc *campaign.Document, req MonsterRequest) (*campaign.Monster, error) {
	if req.Area == "" {
		return nil, &ValidationError{Field: "area"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, &ValidationError{Field: "description"}
	}

	guide := difficultyGuide(req.Difficulty)

	content, err := g.complete(ctx, buildMonsterPrompt(doc, req, guide))
	if err != nil {
		return nil, err
	}

	var raw monsterPayload
	if err := decodePayload(content, &raw); err != nil {
		return nil, err
	}

	monster := &campaign.Monster{
		ID:         uuid.NewString(),
		Name:       fallback(raw.Name, "Unbekannte Kreatur"),
		Summary:    fallback(raw.Summary, "Eine geheimnisvolle Kreatur."),
		Area:       req.Area,
		Difficulty: req.Difficulty,
		Appearance: fallback(raw.Appearance, "Eine Kreatur von unbestimmter Form."),
		HP:         intOr(raw.HP, guide.hpMin),
		AC:         intOr(raw.AC, guide.acMin),
		Speed:      fallback(raw.Speed, "9 m"),
		Tags:       raw.Tags,
	}
	if monster.Tags == nil {
		monster.Tags = req.Tags
	}

	for _, a := range raw.Attacks {
		monster.Attacks = append(monster.Attacks, campaign.MonsterAttack{
			Name:   fallback(a.Name, "Angriff"),
			ToHit:  fallback(a.ToHit, "+4"),
			Damage: fallback(a.Damage, "1W6 Schaden"),
			Effect: a.Effect,
		})
	}
	if len(monster.Attacks) == 0 {
		monster.Attacks = []campaign.MonsterAttack{{Name: "Angriff", ToHit: "+4", Damage: "1W6 Schaden"}}
	}

	for _, a := range raw.Abilities {
		monster.Abilities = append(monster.Abilities, campaign.MonsterAbility{
			Name:        fallback(a.Name, "Fähigkeit"),
			Description: fallback(a.Description, "Eine besondere Fähigkeit."),
		})
	}
	if monster.Abilities == nil {
		monster.Abilities = []campaign.MonsterAbility{}
	}

	return monster, nil
}

// CharacterRequest describes the player character the game master wants.
type CharacterRequest struct {
	// WorldDescription grounds the character; required because characters
	// may be generated before the campaign is saved.
	WorldDescription string `json:"worldDescription"`

	// Name is the desired character name; empty lets the model pick one.
	Name string `json:"characterName,omitempty"`

	// Description is the short character concept.
	Description string `json:"shortDescription"`

	// Role is the party role: warrior, mage, rogue, support, ranger, cleric.
	Role string `json:"role"`

	// PowerLevel is one of low, medium, high, controlling the level range.
	PowerLevel string `json:"powerLevel"`
}

// Character generates a complete player character sheet from the request.
func (g *Generator) Character(ctx context.Context, req CharacterRequest) (*campaign.Character, error) {
	if strings.TrimSpace(req.WorldDescription) == "" {
		return nil, &ValidationError{Field: "worldDescription"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, &ValidationError{Field: "shortDescription"}
	}

	levels := levelRange(req.PowerLevel)
	classes := suggestedClasses(req.Role)

	content, err := g.complete(ctx, buildCharacterPrompt(req, levels, classes))
	if err != nil {
		return nil, err
	}

	var raw characterPayload
	if err := decodePayload(content, &raw); err != nil {
		return nil, err
	}

	character := &campaign.Character{
		ID:      uuid.NewString(),
		Name:    fallback(raw.Name, fallback(req.Name, "Unbekannter Charakter")),
		Summary: fallback(raw.Summary, "Ein geheimnisvoller Abenteurer"),
		Stats: campaign.CharacterStats{
			Level:        clampInt(intOr(raw.Stats.Level, levels.min), 1, 20),
			Class:        fallback(raw.Stats.Class, classes[0]),
			Race:         fallback(raw.Stats.Race, "Mensch"),
			Strength:     clampStat(raw.Stats.Strength),
			Dexterity:    clampStat(raw.Stats.Dexterity),
			Constitution: clampStat(raw.Stats.Constitution),
			Intelligence: clampStat(raw.Stats.Intelligence),
			Wisdom:       clampStat(raw.Stats.Wisdom),
			Charisma:     clampStat(raw.Stats.Charisma),
		},
		Appearance: fallback(raw.Appearance, "Eine Gestalt von durchschnittlicher Statur mit unauffälligen Merkmalen."),
		Backstory:  fallback(raw.Backstory, "Ein Charakter mit einer geheimnisvollen Vergangenheit."),
	}
	return character, nil
}

// TableRowsRequest describes the random table the game master wants.
type TableRowsRequest struct {
	// Area optionally binds the table to a region.
	Area string `json:"area,omitempty"`

	// Description is the table's purpose.
	Description string `json:"description"`
}

// TableRows generates a complete d20 random table: exactly ten rows covering
// the contiguous ranges 1-2 through 19-20, regardless of what the model
// returned.
func (g *Generator) TableRows(ctx context.Context, doc *campaign.Document, req TableRowsRequest) ([]campaign.TableRow, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, &ValidationError{Field: "description"}
	}

	content, err := g.complete(ctx, buildTableRowsPrompt(doc, req))
	if err != nil {
		return nil, err
	}

	var raw []tableRowPayload
	if err := decodePayload(content, &raw); err != nil {
		return nil, err
	}

	// Normalise to the fixed d20 layout: model output fills the slots it
	// provided, placeholders fill the rest.
	rows := make([]campaign.TableRow, 0, 10)
	for i := 0; i < 10; i++ {
		row := campaign.TableRow{
			ID:          uuid.NewString(),
			Start:       i*2 + 1,
			End:         i*2 + 2,
			Title:       fmt.Sprintf("Ergebnis %d", i+1),
			Description: "Etwas passiert.",
		}
		if i < len(raw) {
			if t := strings.TrimSpace(raw[i].Title); t != "" {
				row.Title = t
			}
			if d := strings.TrimSpace(raw[i].Description); d != "" {
				row.Description = d
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
