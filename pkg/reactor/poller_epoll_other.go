//go:build !linux
// +build !linux

package reactor

// NewEpollPoller is only available on linux
func NewEpollPoller() (Poller, error) {
	return nil, ErrNotSupported
}
