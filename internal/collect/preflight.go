package collect

import (
	"golang.org/x/sys/unix"
)

// descriptorsPerWorker is two pipes per worker/master pair
const descriptorsPerWorker = 4

// descriptorHeadroom covers stdio, the wake pipes and the poller
const descriptorHeadroom = 32

// DescriptorPreflight skips trials that would need more open descriptors than the soft
// RLIMIT_NOFILE allows. Without this the trial fails while creating its pipes
func DescriptorPreflight(t Trial) bool {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return true
	}
	need := uint64(t.Config.Workers)*descriptorsPerWorker + descriptorHeadroom
	// an unlimited soft limit reads as the maximum value
	return need <= lim.Cur
}

// RunAll never skips a trial
func RunAll(Trial) bool {
	return true
}
