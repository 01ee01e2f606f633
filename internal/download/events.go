package download

import "wingmand/internal/hub"

// Publisher is the subset of *hub.Hub the Downloader needs. Defined as an
// interface so tests can substitute a recording fake without standing up a
// real Hub.
type Publisher interface {
	Publish(hub.Frame)
}

// noopPublisher discards every frame; used when a Service is built without
// a Hub (e.g. unit tests that only care about Store state).
type noopPublisher struct{}

func (noopPublisher) Publish(hub.Frame) {}
