// Package affinity pins the calling goroutine's OS thread to a specific
// core. Both the capture and consumer threads run pinned to distinct
// cores on the NIC's NUMA node.
package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Pin locks the calling goroutine to its current OS thread and sets
// that thread's CPU affinity to coreID. The caller must keep running on
// the same goroutine for the pin to hold (no further goroutine
// scheduling is attempted onto this OS thread by the runtime).
//
// Pinning failure is a ConfigError, fatal at startup.
func Pin(coreID int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return &xcapture.ConfigError{Msg: fmt.Sprintf("failed to set affinity to core %d: %s", coreID, err)}
	}

	return nil
}
