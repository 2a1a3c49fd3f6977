//go:build !linux

package rt

// raisePriority is a no-op outside Linux: there is no portable
// priority-raising syscall, and the realtime contract degrades to
// "best effort scheduling" rather than failing outright.
func raisePriority(niceDelta int) {}

// LockMemory is a no-op outside Linux.
func LockMemory() error { return nil }

// UnlockMemory is a no-op outside Linux.
func UnlockMemory() error { return nil }
