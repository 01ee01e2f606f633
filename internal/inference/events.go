package inference

import "wingmand/internal/hub"

// Publisher is the subset of *hub.Hub the Supervisor needs.
type Publisher interface {
	Publish(hub.Frame)
}

type noopPublisher struct{}

func (noopPublisher) Publish(hub.Frame) {}
