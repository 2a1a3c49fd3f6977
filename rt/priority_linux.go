//go:build linux

package rt

import "golang.org/x/sys/unix"

// raisePriority makes a best-effort attempt to raise the calling
// thread's scheduling priority. Real SCHED_FIFO requires CAP_SYS_NICE,
// which a development machine rarely grants, so failure here is
// expected and silent: a misconfigured priority degrades latency, it
// never breaks correctness.
func raisePriority(niceDelta int) {
	if niceDelta == 0 {
		return
	}
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, -niceDelta)
}

// LockMemory pins the process's current and future pages in RAM so a
// page fault never stalls the realtime thread.
func LockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}

// UnlockMemory reverses LockMemory.
func UnlockMemory() error {
	return unix.Munlockall()
}
