package generate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/chat"
	"github.com/spielleiter/grimoire/internal/generate"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
	"github.com/spielleiter/grimoire/pkg/provider/llm/mock"
)

func testDocument() *campaign.Document {
	doc := campaign.DefaultDocument()
	doc.WorldDescription = "Die Nebelmark, ein raues Grenzland."
	return doc
}

func newGenerator(t *testing.T, provider llm.Provider) *generate.Generator {
	t.Helper()
	g, err := generate.New(generate.Config{Provider: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGenerateNPC(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{
			"name": "Brom Eisenbart",
			"role": "Schmied",
			"summary": "Ein wortkarger Meisterschmied.",
			"appearance": "Breitschultrig, rußgeschwärzte Schürze.",
			"personality": "Mürrisch, aber loyal.",
			"motivations": "Will seine verschollene Tochter finden.",
			"hooks": ["Sucht seltenes Erz", "Kennt den alten Stollen"],
			"dangerLevel": "potenziell gefährlich",
			"combatNotes": "Kämpft mit dem Schmiedehammer."
		}`},
	}
	g := newGenerator(t, provider)

	npc, err := g.NPC(context.Background(), testDocument(), generate.NPCRequest{
		Area:        "city",
		Role:        "Schmied",
		DangerLevel: campaign.DangerHarmless,
		Description: "Ein Schmied mit einem Geheimnis",
	})
	if err != nil {
		t.Fatalf("NPC: %v", err)
	}

	if npc.ID == "" {
		t.Error("generated NPC has no ID")
	}
	if npc.Name != "Brom Eisenbart" {
		t.Errorf("name = %q", npc.Name)
	}
	if npc.Area != "city" {
		t.Errorf("area = %q, want the requested area", npc.Area)
	}
	// The model may upgrade the danger level when its value is valid.
	if npc.DangerLevel != campaign.DangerPotential {
		t.Errorf("dangerLevel = %q", npc.DangerLevel)
	}
	if len(npc.Hooks) != 2 {
		t.Errorf("got %d hooks, want 2", len(npc.Hooks))
	}

	prompt := provider.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, "Die Nebelmark") {
		t.Error("prompt missing the world description")
	}
	if !strings.Contains(prompt, "Stadt") {
		t.Error("prompt missing the resolved area name")
	}
}

func TestGenerateNPCFillsDefaults(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"name": "Lena"}`},
	}
	g := newGenerator(t, provider)

	npc, err := g.NPC(context.Background(), testDocument(), generate.NPCRequest{
		Area: "forest", Role: "Jägerin", Description: "Eine Jägerin",
	})
	if err != nil {
		t.Fatalf("NPC: %v", err)
	}
	if npc.Role != "Jägerin" {
		t.Errorf("role = %q, want the requested role as fallback", npc.Role)
	}
	if npc.DangerLevel != campaign.DangerHarmless {
		t.Errorf("dangerLevel = %q, want the harmless default", npc.DangerLevel)
	}
	if len(npc.Hooks) == 0 {
		t.Error("no fallback hook")
	}
	if npc.CombatNotes == "" || npc.Personality == "" || npc.Motivations == "" {
		t.Error("missing text defaults")
	}
}

func TestGenerateNPCValidation(t *testing.T) {
	g := newGenerator(t, &mock.Provider{})
	tests := []struct {
		name string
		req  generate.NPCRequest
		want string
	}{
		{"missing area", generate.NPCRequest{Role: "Schmied", Description: "x"}, "area"},
		{"missing role", generate.NPCRequest{Area: "city", Description: "x"}, "role"},
		{"missing description", generate.NPCRequest{Area: "city", Role: "Schmied"}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.NPC(context.Background(), testDocument(), tt.req)
			var vErr *generate.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if vErr.Field != tt.want {
				t.Errorf("field = %q, want %q", vErr.Field, tt.want)
			}
		})
	}
}

func TestGenerateMonsterStripsCodeFences(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "```json\n" + `{
			"name": "Nebelschleicher",
			"summary": "Ein Raubtier aus lebendem Nebel.",
			"appearance": "Wabernde Schwaden mit glühenden Augen.",
			"hp": 45, "ac": 14, "speed": "12 m, Schweben",
			"attacks": [{"name": "Nebelklaue", "toHit": "+5", "damage": "2W6+2 Kälteschaden"}],
			"abilities": [{"name": "Verschleiern", "description": "Hüllt sich in undurchdringlichen Nebel."}],
			"tags": ["Elementar"]
		}` + "\n```"},
	}
	g := newGenerator(t, provider)

	monster, err := g.Monster(context.Background(), testDocument(), generate.MonsterRequest{
		Area: "lake", Difficulty: "medium", Description: "Ein Nebelwesen",
	})
	if err != nil {
		t.Fatalf("Monster: %v", err)
	}
	if monster.Name != "Nebelschleicher" {
		t.Errorf("name = %q", monster.Name)
	}
	if monster.HP != 45 || monster.AC != 14 {
		t.Errorf("hp/ac = %d/%d", monster.HP, monster.AC)
	}
	if len(monster.Attacks) != 1 || monster.Attacks[0].Name != "Nebelklaue" {
		t.Errorf("attacks = %+v", monster.Attacks)
	}
}

func TestGenerateMonsterDifficultyDefaults(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"name": "Schatten"}`},
	}
	g := newGenerator(t, provider)

	monster, err := g.Monster(context.Background(), testDocument(), generate.MonsterRequest{
		Area: "cave", Difficulty: "deadly", Description: "Ein Schatten", Tags: []string{"Untoter"},
	})
	if err != nil {
		t.Fatalf("Monster: %v", err)
	}
	// Missing stats fall back to the difficulty floor.
	if monster.HP != 100 || monster.AC != 16 {
		t.Errorf("hp/ac = %d/%d, want the deadly floor 100/16", monster.HP, monster.AC)
	}
	if len(monster.Attacks) != 1 {
		t.Errorf("got %d attacks, want the fallback attack", len(monster.Attacks))
	}
	if len(monster.Tags) != 1 || monster.Tags[0] != "Untoter" {
		t.Errorf("tags = %v, want the requested tags as fallback", monster.Tags)
	}
}

func TestGenerateCharacterClampsStats(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{
			"name": "Kaela",
			"summary": "Eine junge Magierin.",
			"stats": {"level": 99, "class": "Magierin", "race": "Elfe",
				"strength": 1, "dexterity": 14, "constitution": 12,
				"intelligence": 25, "wisdom": 13, "charisma": 11},
			"appearance": "Silberhaar, violette Augen.",
			"backstory": "Aus der Akademie verstoßen."
		}`},
	}
	g := newGenerator(t, provider)

	character, err := g.Character(context.Background(), generate.CharacterRequest{
		WorldDescription: "Die Nebelmark.",
		Description:      "Eine Magierin",
		Role:             "mage",
		PowerLevel:       "high",
	})
	if err != nil {
		t.Fatalf("Character: %v", err)
	}
	if character.Stats.Level != 20 {
		t.Errorf("level = %d, want clamped to 20", character.Stats.Level)
	}
	if character.Stats.Strength != 3 {
		t.Errorf("strength = %d, want clamped to 3", character.Stats.Strength)
	}
	if character.Stats.Intelligence != 20 {
		t.Errorf("intelligence = %d, want clamped to 20", character.Stats.Intelligence)
	}
}

func TestGenerateCharacterRequiresWorld(t *testing.T) {
	g := newGenerator(t, &mock.Provider{})
	_, err := g.Character(context.Background(), generate.CharacterRequest{Description: "x", Role: "warrior"})
	var vErr *generate.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "worldDescription" {
		t.Errorf("got %v, want ValidationError for worldDescription", err)
	}
}

func TestGenerateTableRowsNormalises(t *testing.T) {
	// The model returned only three rows with wrong ranges.
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `[
			{"start": 5, "end": 9, "title": "Hinterhalt", "description": "Banditen greifen an."},
			{"start": 1, "end": 1, "title": "Sturm", "description": "Ein Unwetter zieht auf."},
			{"start": 2, "end": 3, "title": "Fund", "description": "Eine alte Ruine taucht auf."}
		]`},
	}
	g := newGenerator(t, provider)

	rows, err := g.TableRows(context.Background(), testDocument(), generate.TableRowsRequest{
		Area: "forest", Description: "Reiseereignisse im Wald",
	})
	if err != nil {
		t.Fatalf("TableRows: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("got %d rows, want 10", len(rows))
	}
	for i, row := range rows {
		wantStart, wantEnd := i*2+1, i*2+2
		if row.Start != wantStart || row.End != wantEnd {
			t.Errorf("row %d range = %d-%d, want %d-%d", i, row.Start, row.End, wantStart, wantEnd)
		}
		if row.ID == "" {
			t.Errorf("row %d has no ID", i)
		}
	}
	if rows[0].Title != "Hinterhalt" {
		t.Errorf("row 0 title = %q, want the model's title", rows[0].Title)
	}
	if rows[9].Title != "Ergebnis 10" {
		t.Errorf("row 9 title = %q, want the placeholder", rows[9].Title)
	}
}

func TestGenerateParseFailure(t *testing.T) {
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Hier ist dein NPC: Brom der Schmied!"},
	}
	g := newGenerator(t, provider)

	_, err := g.NPC(context.Background(), testDocument(), generate.NPCRequest{
		Area: "city", Role: "Schmied", Description: "x",
	})
	var pErr *generate.ParseError
	if !errors.As(err, &pErr) {
		t.Errorf("got %v, want ParseError", err)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	provider := &mock.Provider{CompleteErr: errors.New("429 rate limit")}
	g := newGenerator(t, provider)

	_, err := g.NPC(context.Background(), testDocument(), generate.NPCRequest{
		Area: "city", Role: "Schmied", Description: "x",
	})
	var gErr *chat.GenerationError
	if !errors.As(err, &gErr) {
		t.Fatalf("got %v, want GenerationError", err)
	}
	if gErr.Kind != chat.GenerationQuotaExhausted {
		t.Errorf("kind = %q, want %q", gErr.Kind, chat.GenerationQuotaExhausted)
	}
}
