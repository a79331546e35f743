package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rosterdev/roster/internal/sysinfo"
)

// instanceNamespace is the fixed namespace for deriving deterministic
// instance IDs from session IDs during migration of legacy records.
// Changing it would reorder historical entries, so it never changes.
var instanceNamespace = uuid.MustParse("9c7f4a52-1f6e-4a8d-9b6a-0f2e8c3d5b71")

// Identity captures the identifiers generated once per process run.
type Identity struct {
	ProcessID  int
	SessionID  string
	InstanceID string
}

// NewIdentity generates this run's identifiers. The session ID combines
// the PID, the process start time and a random suffix, so it stays unique
// across PID reuse. The instance ID is a fresh GUID used only for sort
// order.
func NewIdentity() Identity {
	pid := os.Getpid()
	return Identity{
		ProcessID:  pid,
		SessionID:  fmt.Sprintf("%d-%d-%s", pid, sysinfo.ProcessStart().UnixMilli(), randomSuffix()),
		InstanceID: uuid.NewString(),
	}
}

// randomSuffix returns 4 random bytes hex-encoded, with a timestamp-free
// fallback only if the system randomness source fails.
func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", os.Getpid())
	}
	return hex.EncodeToString(b)
}

// DeriveInstanceID deterministically maps a session ID to a GUID-shaped
// instance ID. Used to backfill schema-version-0 records so historical
// files keep a stable sort order without re-registration.
func DeriveInstanceID(sessionID string) string {
	return uuid.NewSHA1(instanceNamespace, []byte(sessionID)).String()
}

// Migrate upgrades an entry read from disk to the current schema.
// Version 0 records lack instance_id; they receive one derived from the
// session ID. Returns the upgraded entry and whether it changed.
func Migrate(e Entry) (Entry, bool) {
	if e.Schema >= SchemaVersion {
		return e, false
	}
	if e.InstanceID == "" {
		e.InstanceID = DeriveInstanceID(e.SessionID)
	}
	e.Schema = SchemaVersion
	return e, true
}
