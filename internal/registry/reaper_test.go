package registry

import (
	"testing"
	"time"
)

func TestReap(t *testing.T) {
	now := time.Now()
	threshold := 15 * time.Second

	entryAged := func(sessionID string, age time.Duration) Entry {
		e := testEntry(sessionID, sessionID)
		e.LastUpdated = now.Add(-age).UnixMilli()
		return e
	}

	tests := []struct {
		name        string
		entries     []Entry
		wantLive    []string
		wantRemoved int
	}{
		{
			name:     "empty input",
			entries:  []Entry{},
			wantLive: []string{},
		},
		{
			name: "all live",
			entries: []Entry{
				entryAged("a", 0),
				entryAged("b", 5*time.Second),
				entryAged("c", 14*time.Second),
			},
			wantLive: []string{"a", "b", "c"},
		},
		{
			name: "stale removed",
			entries: []Entry{
				entryAged("a", time.Second),
				entryAged("b", 16*time.Second),
				entryAged("c", time.Hour),
			},
			wantLive:    []string{"a"},
			wantRemoved: 2,
		},
		{
			name: "exactly at threshold is stale",
			entries: []Entry{
				entryAged("a", threshold),
			},
			wantLive:    []string{},
			wantRemoved: 1,
		},
		{
			name: "just under threshold is live",
			entries: []Entry{
				entryAged("a", threshold-time.Millisecond),
			},
			wantLive: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live, removed := Reap(tt.entries, now, threshold)

			if removed != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", removed, tt.wantRemoved)
			}
			if len(live) != len(tt.wantLive) {
				t.Fatalf("live = %d entries, want %d", len(live), len(tt.wantLive))
			}
			for i, want := range tt.wantLive {
				if live[i].SessionID != want {
					t.Errorf("live[%d] = %q, want %q", i, live[i].SessionID, want)
				}
			}
		})
	}
}

func TestReap_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		testEntry("a", "a"),
		testEntry("b", "b"),
	}
	entries[1].LastUpdated = 0 // ancient

	Reap(entries, now, 15*time.Second)

	if len(entries) != 2 {
		t.Error("input slice length changed")
	}
	if entries[1].SessionID != "b" {
		t.Error("input slice contents changed")
	}
}
