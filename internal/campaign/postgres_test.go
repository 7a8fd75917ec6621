package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "CREATE TABLE") {
					t.Errorf("Migrate SQL should contain CREATE TABLE, got: %s", sql)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		if err := NewPostgresStore(db).Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() unexpected error: %v", err)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("connection refused")
			},
		}
		err := NewPostgresStore(db).Migrate(context.Background())
		if err == nil {
			t.Fatal("Migrate() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "campaign: migrate:") {
			t.Errorf("error = %q, want prefix 'campaign: migrate:'", err.Error())
		}
	})
}

func TestPostgresStore_Load(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		stored := &Document{WorldDescription: "Die Nebelmark.", NPCs: []NPC{{ID: "npc-1", Name: "Elira"}}}
		raw, _ := json.Marshal(stored)

		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
				if args[0] != "default" {
					t.Errorf("document id = %v, want 'default'", args[0])
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = raw
					return nil
				}}
			},
		}

		doc, err := NewPostgresStore(db).Load(context.Background())
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if doc.WorldDescription != "Die Nebelmark." {
			t.Errorf("worldDescription = %q", doc.WorldDescription)
		}
		if doc.FindNPC("npc-1") == nil {
			t.Error("NPC missing after load")
		}
		// Sparse stored documents still get the default collections.
		if doc.Areas == nil || doc.MonsterTypes == nil {
			t.Error("nil collections not defaulted")
		}
	})

	t.Run("missing row initialises default", func(t *testing.T) {
		t.Parallel()
		var savedRaw []byte
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(_ ...any) error { return pgx.ErrNoRows }}
			},
			execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "ON CONFLICT") {
					t.Errorf("Save SQL should upsert, got: %s", sql)
				}
				savedRaw = args[1].([]byte)
				return pgconn.CommandTag{}, nil
			},
		}

		doc, err := NewPostgresStore(db).Load(context.Background())
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if len(doc.Areas) == 0 {
			t.Error("default document has no areas")
		}
		if savedRaw == nil {
			t.Error("default document not persisted")
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(_ ...any) error { return errors.New("timeout") }}
			},
		}
		_, err := NewPostgresStore(db).Load(context.Background())
		if err == nil {
			t.Fatal("Load() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "campaign: load document:") {
			t.Errorf("error = %q, want prefix 'campaign: load document:'", err.Error())
		}
	})
}

func TestPostgresStore_UpdateNPC(t *testing.T) {
	t.Parallel()

	stored := &Document{NPCs: []NPC{{ID: "npc-1", Name: "Elira"}}}
	raw, _ := json.Marshal(stored)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var savedRaw []byte
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = raw
					return nil
				}}
			},
			execFunc: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
				savedRaw = args[1].([]byte)
				return pgconn.CommandTag{}, nil
			},
		}

		store := NewPostgresStore(db)
		err := store.UpdateNPC(context.Background(), "npc-1", func(n *NPC) error {
			n.Voice = VoiceMaleEpic
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateNPC() unexpected error: %v", err)
		}

		var saved Document
		if err := json.Unmarshal(savedRaw, &saved); err != nil {
			t.Fatalf("unmarshal saved doc: %v", err)
		}
		if saved.NPCs[0].Voice != VoiceMaleEpic {
			t.Errorf("saved voice = %q, want male_epic", saved.NPCs[0].Voice)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = raw
					return nil
				}}
			},
		}
		err := NewPostgresStore(db).UpdateNPC(context.Background(), "npc-404", func(*NPC) error { return nil })
		if !errors.Is(err, ErrNPCNotFound) {
			t.Errorf("got %v, want ErrNPCNotFound", err)
		}
	})

	t.Run("mutate error saves nothing", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = raw
					return nil
				}}
			},
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				t.Error("Save must not run when mutate fails")
				return pgconn.CommandTag{}, nil
			},
		}
		err := NewPostgresStore(db).UpdateNPC(context.Background(), "npc-1", func(*NPC) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("got %v, want the callback error", err)
		}
	})
}
