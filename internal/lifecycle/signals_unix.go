//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

// terminationSignals are interrupt, terminate and the two restart-style
// signals process supervisors send.
func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2}
}
