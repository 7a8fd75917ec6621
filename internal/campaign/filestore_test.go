package campaign_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spielleiter/grimoire/internal/campaign"
)

func newStore(t *testing.T) (*campaign.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	store, err := campaign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store, path
}

func TestFileStoreInitialisesDefaults(t *testing.T) {
	store, path := newStore(t)

	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Areas) == 0 {
		t.Error("default document has no areas")
	}
	if len(doc.MonsterTypes) == 0 {
		t.Error("default document has no monster types")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default document not written to disk: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	doc.WorldDescription = "Die Nebelmark."
	doc.NPCs = append(doc.NPCs, campaign.NPC{
		ID: "npc-1", Name: "Elira", Area: "forest", DangerLevel: campaign.DangerHarmless,
		ChatState: &campaign.ChatState{
			MemorySummary: "Erste Begegnung.",
			RecentMessages: []campaign.ChatMessage{
				{Role: campaign.RolePlayer, Content: "Hallo", Timestamp: 1},
				{Role: campaign.RoleNPC, Content: "Gruß", Timestamp: 2},
			},
		},
	})
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.WorldDescription != "Die Nebelmark." {
		t.Errorf("worldDescription = %q", loaded.WorldDescription)
	}
	npc := loaded.FindNPC("npc-1")
	if npc == nil {
		t.Fatal("NPC lost in round trip")
	}
	if npc.ChatState == nil || npc.ChatState.MemorySummary != "Erste Begegnung." {
		t.Errorf("chat state = %+v", npc.ChatState)
	}
	if len(npc.ChatState.RecentMessages) != 2 {
		t.Errorf("got %d messages, want 2", len(npc.ChatState.RecentMessages))
	}
}

func TestFileStoreAppliesDefaultsToSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte(`{"worldDescription": "Alt"}`), 0o644); err != nil {
		t.Fatalf("write sparse file: %v", err)
	}
	store, err := campaign.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.WorldDescription != "Alt" {
		t.Errorf("worldDescription = %q", doc.WorldDescription)
	}
	if doc.Areas == nil || doc.NPCs == nil || doc.MonsterTypes == nil {
		t.Error("nil collections not defaulted")
	}
}

func TestFileStoreGetNPC(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	doc, _ := store.Load(ctx)
	doc.NPCs = []campaign.NPC{{ID: "npc-1", Name: "Elira"}}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	npc, err := store.GetNPC(ctx, "npc-1")
	if err != nil {
		t.Fatalf("GetNPC: %v", err)
	}
	if npc == nil || npc.Name != "Elira" {
		t.Errorf("npc = %+v", npc)
	}

	missing, err := store.GetNPC(ctx, "npc-2")
	if err != nil {
		t.Fatalf("GetNPC miss: %v", err)
	}
	if missing != nil {
		t.Errorf("miss returned %+v, want nil", missing)
	}
}

func TestFileStoreUpdateNPC(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	doc, _ := store.Load(ctx)
	doc.NPCs = []campaign.NPC{{ID: "npc-1", Name: "Elira"}}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := store.UpdateNPC(ctx, "npc-1", func(n *campaign.NPC) error {
		n.Voice = campaign.VoiceFemaleEpic
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateNPC: %v", err)
	}
	npc, _ := store.GetNPC(ctx, "npc-1")
	if npc.Voice != campaign.VoiceFemaleEpic {
		t.Errorf("voice = %q", npc.Voice)
	}

	if err := store.UpdateNPC(ctx, "npc-404", func(n *campaign.NPC) error { return nil }); !errors.Is(err, campaign.ErrNPCNotFound) {
		t.Errorf("got %v, want ErrNPCNotFound", err)
	}

	// A failing mutate callback saves nothing.
	boom := errors.New("boom")
	if err := store.UpdateNPC(ctx, "npc-1", func(n *campaign.NPC) error {
		n.Name = "Kaputt"
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("got %v, want the callback error", err)
	}
	npc, _ = store.GetNPC(ctx, "npc-1")
	if npc.Name != "Elira" {
		t.Errorf("name = %q, want unchanged after failed mutate", npc.Name)
	}
}

func TestNPCValidate(t *testing.T) {
	valid := campaign.NPC{Name: "Elira", DangerLevel: campaign.DangerHarmless, Voice: campaign.VoiceFemaleEpic}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid NPC rejected: %v", err)
	}

	invalid := campaign.NPC{DangerLevel: "apokalyptisch", Voice: "whisper"}
	err := invalid.Validate()
	if err == nil {
		t.Fatal("invalid NPC accepted")
	}
	for _, want := range []string{"name", "danger level", "voice"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestDocumentAreaName(t *testing.T) {
	doc := campaign.DefaultDocument()
	if got := doc.AreaName("forest"); got != "Wald" {
		t.Errorf("AreaName(forest) = %q", got)
	}
	if got := doc.AreaName("moon"); got != "moon" {
		t.Errorf("AreaName(moon) = %q, want the raw ID fallback", got)
	}
}
