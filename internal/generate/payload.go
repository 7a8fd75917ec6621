package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spielleiter/grimoire/internal/campaign"
)

// ParseError reports a completion that could not be decoded into the expected
// JSON payload. The raw completion is deliberately not carried in the error
// message; it is the caller's choice whether to log it.
type ParseError struct {
	// Err is the underlying JSON decoding error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("generate: parse completion: %v", e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *ParseError) Unwrap() error { return e.Err }

// Intermediate payloads. Every field is optional so a partially valid
// completion still yields a usable entity after defaults are applied.

type npcPayload struct {
	Name        string               `json:"name"`
	Role        string               `json:"role"`
	Summary     string               `json:"summary"`
	Appearance  string               `json:"appearance"`
	Personality string               `json:"personality"`
	Motivations string               `json:"motivations"`
	Hooks       []string             `json:"hooks"`
	DangerLevel campaign.DangerLevel `json:"dangerLevel"`
	CombatNotes string               `json:"combatNotes"`
}

type monsterAttackPayload struct {
	Name   string `json:"name"`
	ToHit  string `json:"toHit"`
	Damage string `json:"damage"`
	Effect string `json:"effect"`
}

type monsterAbilityPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type monsterPayload struct {
	Name       string                  `json:"name"`
	Summary    string                  `json:"summary"`
	Appearance string                  `json:"appearance"`
	HP         int                     `json:"hp"`
	AC         int                     `json:"ac"`
	Speed      string                  `json:"speed"`
	Attacks    []monsterAttackPayload  `json:"attacks"`
	Abilities  []monsterAbilityPayload `json:"abilities"`
	Tags       []string                `json:"tags"`
}

type characterStatsPayload struct {
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

type characterPayload struct {
	Name       string                `json:"name"`
	Summary    string                `json:"summary"`
	Stats      characterStatsPayload `json:"stats"`
	Appearance string                `json:"appearance"`
	Backstory  string                `json:"backstory"`
}

type tableRowPayload struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// decodePayload strips Markdown code fences from a completion and unmarshals
// the remaining JSON into dst.
func decodePayload(content string, dst any) error {
	if err := json.Unmarshal([]byte(stripFences(content)), dst); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// stripFences removes a single surrounding Markdown code fence, with or
// without a "json" language tag. Models regularly wrap payloads this way
// despite the instruction not to.
func stripFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func intOr(value, def int) int {
	if value == 0 {
		return def
	}
	return value
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// clampStat bounds an ability score to the playable 3-20 range, defaulting
// to 10 when the model omitted it.
func clampStat(value int) int {
	if value == 0 {
		return 10
	}
	return clampInt(value, 3, 20)
}
