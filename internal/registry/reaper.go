package registry

import "time"

// Reap filters out entries whose last heartbeat is at least threshold old.
// It is a pure function used on both the read and write paths; callers
// persist the pruned collection when removed > 0 so other readers
// converge without waiting for the next writer's heartbeat.
func Reap(entries []Entry, now time.Time, threshold time.Duration) (live []Entry, removed int) {
	live = make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Live(now, threshold) {
			live = append(live, e)
		} else {
			removed++
		}
	}
	return live, removed
}
