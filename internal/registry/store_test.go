package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
)

func newTestStore(t *testing.T) (*Store, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	path := filepath.Join(t.TempDir(), "instances.json")
	return NewStore(path, logging.NopLogger(), bus), bus
}

func testEntry(sessionID, instanceID string) Entry {
	now := time.Now().UnixMilli()
	return Entry{
		ProcessID:   1234,
		SessionID:   sessionID,
		InstanceID:  instanceID,
		DisplayName: "test",
		LastUpdated: now,
		StartTime:   now,
		MemoryMB:    42.5,
		Schema:      SchemaVersion,
	}
}

func TestStore_ReadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	entries := store.Read()
	if entries == nil {
		t.Fatal("Read should return an empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("Read of missing file = %d entries, want 0", len(entries))
	}
}

func TestStore_ReadEmptyFile(t *testing.T) {
	store, _ := newTestStore(t)

	if err := os.MkdirAll(store.Dir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if got := store.Read(); len(got) != 0 {
		t.Errorf("Read of empty file = %d entries, want 0", len(got))
	}
}

func TestStore_ReadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "not json"},
		{name: "wrong shape", content: `{"session_id": "solo"}`},
		{name: "truncated array", content: `[{"session_id": "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, bus := newTestStore(t)

			corruptEvents := 0
			bus.Subscribe(event.TypeRegistryCorrupt, func(event.Event) {
				corruptEvents++
			})

			if err := os.MkdirAll(store.Dir(), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			if got := store.Read(); len(got) != 0 {
				t.Errorf("Read of corrupt file = %d entries, want 0", len(got))
			}
			if corruptEvents != 1 {
				t.Errorf("corrupt events = %d, want 1", corruptEvents)
			}

			// The diagnostic fires once per store, not per read.
			store.Read()
			if corruptEvents != 1 {
				t.Errorf("corrupt events after second read = %d, want 1", corruptEvents)
			}
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	written := []Entry{
		testEntry("sess-b", "bbbbbbbb-0000-0000-0000-000000000000"),
		testEntry("sess-a", "aaaaaaaa-0000-0000-0000-000000000000"),
		testEntry("sess-c", "cccccccc-0000-0000-0000-000000000000"),
	}
	if err := store.Write(written); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got := store.Read()
	if len(got) != 3 {
		t.Fatalf("Read = %d entries, want 3", len(got))
	}

	// Persisted order is instance ID ascending.
	wantOrder := []string{"sess-a", "sess-b", "sess-c"}
	for i, want := range wantOrder {
		if got[i].SessionID != want {
			t.Errorf("entry %d session = %q, want %q", i, got[i].SessionID, want)
		}
	}
}

func TestStore_WriteCreatesParentDir(t *testing.T) {
	bus := event.NewBus()
	path := filepath.Join(t.TempDir(), "deep", "nested", "instances.json")
	store := NewStore(path, logging.NopLogger(), bus)

	if err := store.Write([]Entry{testEntry("sess-1", "aaaa")}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if got := store.Read(); len(got) != 1 {
		t.Errorf("Read after write = %d entries, want 1", len(got))
	}
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Write([]Entry{testEntry("sess-1", "aaaa")}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	files, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("directory holds %v, want only the registry file", names)
	}
}

func TestStore_ReadMigratesLegacyEntries(t *testing.T) {
	store, _ := newTestStore(t)

	// Schema-version-0 record: no instance_id, no schema_version.
	legacy := []map[string]any{
		{
			"process_id":   99,
			"session_id":   "legacy-session",
			"display_name": "old",
			"last_updated": time.Now().UnixMilli(),
			"start_time":   time.Now().UnixMilli(),
			"memory_mb":    10.0,
		},
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(store.Dir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), data, 0644); err != nil {
		t.Fatal(err)
	}

	got := store.Read()
	if len(got) != 1 {
		t.Fatalf("Read = %d entries, want 1", len(got))
	}
	if got[0].InstanceID == "" {
		t.Error("legacy entry should receive a backfilled instance ID")
	}
	if got[0].InstanceID != DeriveInstanceID("legacy-session") {
		t.Errorf("backfilled ID = %q, want deterministic derivation", got[0].InstanceID)
	}
	if got[0].Schema != SchemaVersion {
		t.Errorf("migrated schema = %d, want %d", got[0].Schema, SchemaVersion)
	}
}
