package httpapi

import (
	"context"

	"wingmand/internal/hub"
	"wingmand/internal/retrieval"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

// ModelCatalog supplies the curated model list for GET /api/models. The
// original daemon hits the Hugging Face API directly from the handler; here
// it is an interface so the HTTP layer stays testable without a live fetch.
type ModelCatalog interface {
	List(ctx context.Context) ([]string, error)
}

// MetadataReader resolves descriptive metadata for a downloaded model file.
type MetadataReader interface {
	Read(modelRepo, filePath string) (map[string]any, error)
}

// HardwareProbe is the signature of the Hardware Probe (C8) entry point.
type HardwareProbe func(ctx context.Context) types.HardwareInfo

// Dependencies collects everything the Control API needs to serve requests.
// It holds no business logic of its own: every handler translates a request
// into Store mutations and/or reads, following the teacher's thin-handler
// style in internal/httpapi/server.go.
type Dependencies struct {
	Store     *store.Store
	Hub       *hub.Hub
	Retrieval *retrieval.Service // nil disables the /api/retrieval/* routes
	Models    ModelCatalog
	Metadata  MetadataReader
	Probe     HardwareProbe

	// AppDir roots the static /app and /admin file trees (dist/ and
	// distadmin/ relative to the binary, per spec's on-disk state layout).
	AppDir string

	// RequestShutdown is invoked by GET /api/shutdown and the websocket
	// "shutdown" control message. Wired by the Lifecycle Manager (C6) to
	// its root cancellation.
	RequestShutdown func()
}
