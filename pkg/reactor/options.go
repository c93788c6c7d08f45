package reactor

import "github.com/rs/zerolog"

// Option configures a Reactor
type Option func(*Reactor)

// WithPoller replaces the default poll(2) backend. The reactor takes ownership and closes p on Close
func WithPoller(p Poller) Option {
	return func(r *Reactor) {
		r.poller = p
	}
}

// WithLogger sets the logger used for cycle traces and usage errors
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reactor) {
		r.logger = l
	}
}
