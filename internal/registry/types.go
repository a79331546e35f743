package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// SchemaVersion is the current version of the persisted entry format.
// Version 0 predates the instance_id field; Migrate backfills it.
const SchemaVersion = 1

// Entry is one process instance's published state record.
type Entry struct {
	// ProcessID is the OS process identifier of the publishing instance.
	// PIDs are recycled by the OS; only SessionID identifies a run.
	ProcessID int `json:"process_id"`

	// SessionID uniquely identifies this run of an instance and is the
	// de-duplication key on write.
	SessionID string `json:"session_id"`

	// InstanceID is a GUID used purely to give reads a stable sort
	// order; it carries no identity semantics.
	InstanceID string `json:"instance_id,omitempty"`

	// DisplayName is the human label shown for this instance.
	DisplayName string `json:"display_name"`

	// WorkspacePath is the filesystem path the instance operates on, if any.
	WorkspacePath string `json:"workspace_path,omitempty"`

	// LastUpdated is the epoch-millisecond time of the last (re)publish.
	LastUpdated int64 `json:"last_updated"`

	// StartTime is the epoch-millisecond time the process started.
	StartTime int64 `json:"start_time"`

	// MemoryMB is a self-reported memory snapshot.
	MemoryMB float64 `json:"memory_mb"`

	// Schema records the entry format version for migration.
	Schema int `json:"schema_version"`

	// Payloads holds opaque collaborator summaries, passed through
	// unmodified. The registry never interprets their contents.
	Payloads map[string]json.RawMessage `json:"payloads,omitempty"`
}

// Live reports whether the entry's heartbeat is within threshold of now.
func (e Entry) Live(now time.Time, threshold time.Duration) bool {
	return now.UnixMilli()-e.LastUpdated < threshold.Milliseconds()
}

// Uptime returns how long the publishing process has been running.
func (e Entry) Uptime(now time.Time) time.Duration {
	d := time.Duration(now.UnixMilli()-e.StartTime) * time.Millisecond
	if d < 0 {
		return 0
	}
	return d
}

// SortEntries orders entries by InstanceID ascending. The order exists
// solely to keep the externally visible listing stable across reads.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstanceID < entries[j].InstanceID
	})
}

// InstanceView is the public shape consumers receive from the client.
type InstanceView struct {
	ProcessID     int                        `json:"process_id"`
	DisplayName   string                     `json:"display_name"`
	WorkspacePath string                     `json:"workspace_path,omitempty"`
	MemoryMB      float64                    `json:"memory_mb"`
	Uptime        string                     `json:"uptime"`
	Payloads      map[string]json.RawMessage `json:"payloads,omitempty"`
}

// viewOf converts an entry to its public shape.
func viewOf(e Entry, now time.Time) InstanceView {
	return InstanceView{
		ProcessID:     e.ProcessID,
		DisplayName:   e.DisplayName,
		WorkspacePath: e.WorkspacePath,
		MemoryMB:      e.MemoryMB,
		Uptime:        FormatUptime(e.Uptime(now)),
		Payloads:      e.Payloads,
	}
}

// FormatUptime renders a duration the way the instance list displays it:
// "42s", "5m 03s", "2h 14m", "3d 6h".
func FormatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
	}
}

// PayloadProvider supplies an opaque collaborator summary that gets
// embedded into this instance's entry on every publish. Providers that
// fail are skipped for that tick.
type PayloadProvider interface {
	// Name keys the payload within the entry.
	Name() string
	// Payload returns the current summary as raw JSON.
	Payload() (json.RawMessage, error)
}
