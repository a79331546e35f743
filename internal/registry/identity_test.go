package registry

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestNewIdentity(t *testing.T) {
	id := NewIdentity()

	if id.ProcessID != os.Getpid() {
		t.Errorf("ProcessID = %d, want %d", id.ProcessID, os.Getpid())
	}
	if id.SessionID == "" {
		t.Error("SessionID should not be empty")
	}
	if _, err := uuid.Parse(id.InstanceID); err != nil {
		t.Errorf("InstanceID %q is not a valid UUID: %v", id.InstanceID, err)
	}
}

func TestNewIdentity_UniquePerCall(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewIdentity()
		if seen[id.SessionID] {
			t.Fatalf("duplicate session ID %q", id.SessionID)
		}
		seen[id.SessionID] = true
	}
}

func TestDeriveInstanceID(t *testing.T) {
	a := DeriveInstanceID("session-1")
	b := DeriveInstanceID("session-1")
	c := DeriveInstanceID("session-2")

	if a != b {
		t.Errorf("derivation is not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Error("different sessions should derive different instance IDs")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("derived ID %q is not a valid UUID: %v", a, err)
	}
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name        string
		entry       Entry
		wantChanged bool
		wantID      string
	}{
		{
			name: "legacy entry without instance ID",
			entry: Entry{
				SessionID: "old-session",
				Schema:    0,
			},
			wantChanged: true,
			wantID:      DeriveInstanceID("old-session"),
		},
		{
			name: "legacy entry with instance ID keeps it",
			entry: Entry{
				SessionID:  "old-session",
				InstanceID: "keep-me",
				Schema:     0,
			},
			wantChanged: true,
			wantID:      "keep-me",
		},
		{
			name: "current entry untouched",
			entry: Entry{
				SessionID:  "new-session",
				InstanceID: "existing",
				Schema:     SchemaVersion,
			},
			wantChanged: false,
			wantID:      "existing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Migrate(tt.entry)

			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got.InstanceID != tt.wantID {
				t.Errorf("InstanceID = %q, want %q", got.InstanceID, tt.wantID)
			}
			if got.Schema != SchemaVersion {
				t.Errorf("Schema = %d, want %d", got.Schema, SchemaVersion)
			}
		})
	}
}
