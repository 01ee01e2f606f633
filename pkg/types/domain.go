// Package types holds the wire and storage representations shared across
// wingmand's services: the Store, the Downloader, the Inference Supervisor,
// the Control API, and the administrative CLI.
package types

import "time"

// DownloadItemStatus is the lifecycle state of a DownloadItem.
type DownloadItemStatus string

const (
	DownloadQueued      DownloadItemStatus = "queued"
	DownloadDownloading DownloadItemStatus = "downloading"
	DownloadComplete    DownloadItemStatus = "complete"
	DownloadError       DownloadItemStatus = "error"
	DownloadCancelled   DownloadItemStatus = "cancelled"
)

// DownloadItem is identified by (ModelRepo, FilePath). At most one row exists
// per pair; Progress is monotonically non-decreasing while Status=downloading.
type DownloadItem struct {
	ModelRepo       string             `json:"modelRepo"`
	FilePath        string             `json:"filePath"`
	TotalBytes      int64              `json:"totalBytes"`
	DownloadedBytes int64              `json:"downloadedBytes"`
	Progress        float64            `json:"progress"`
	Status          DownloadItemStatus `json:"status"`
	Error           string             `json:"error,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// WingmanItemStatus is the lifecycle state of a WingmanItem (inference session).
type WingmanItemStatus string

const (
	WingmanQueued     WingmanItemStatus = "queued"
	WingmanPreparing  WingmanItemStatus = "preparing"
	WingmanInferring  WingmanItemStatus = "inferring"
	WingmanCancelling WingmanItemStatus = "cancelling"
	WingmanComplete   WingmanItemStatus = "complete"
	WingmanCancelled  WingmanItemStatus = "cancelled"
	WingmanError      WingmanItemStatus = "error"
	WingmanUnknown    WingmanItemStatus = "unknown"
)

// IsActive reports whether status is one of the non-terminal states.
func (s WingmanItemStatus) IsActive() bool {
	switch s {
	case WingmanQueued, WingmanPreparing, WingmanInferring, WingmanCancelling:
		return true
	default:
		return false
	}
}

// IsCompleted reports whether status is one of the terminal states.
func (s WingmanItemStatus) IsCompleted() bool {
	switch s {
	case WingmanComplete, WingmanCancelled, WingmanError:
		return true
	default:
		return false
	}
}

// WingmanItem is identified by a client-chosen unique Alias. It references a
// (ModelRepo, FilePath) pair that must correspond to a completed DownloadItem.
type WingmanItem struct {
	Alias       string            `json:"alias"`
	ModelRepo   string            `json:"modelRepo"`
	FilePath    string            `json:"filePath"`
	Address     string            `json:"address"`
	Port        int               `json:"port"`
	ContextSize int               `json:"contextSize"`
	GPULayers   int               `json:"gpuLayers"`
	Status      WingmanItemStatus `json:"status"`
	Error       string            `json:"error,omitempty"`
	PID         int               `json:"pid,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// AppServiceStatus is the self-reported status any service publishes to its AppItem.
type AppServiceStatus string

const (
	AppStarting  AppServiceStatus = "starting"
	AppReady     AppServiceStatus = "ready"
	AppPreparing AppServiceStatus = "preparing"
	AppInferring AppServiceStatus = "inferring"
	AppStopping  AppServiceStatus = "stopping"
	AppStopped   AppServiceStatus = "stopped"
	AppError     AppServiceStatus = "error"
)

// AppItem is a named blob storing a service's last published self-status
// plus an arbitrary JSON payload.
type AppItem struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	DownloadServerAppName = "DownloadServer"
	WingmanServiceAppName = "WingmanService"
)

// DownloadServerAppItem is the typed projection of AppItem for the Downloader.
type DownloadServerAppItem struct {
	Status          AppServiceStatus `json:"status"`
	Error           string           `json:"error,omitempty"`
	CurrentDownload *DownloadItem    `json:"currentDownload,omitempty"`
}

// WingmanServiceAppItem is the typed projection of AppItem for the Inference Supervisor.
type WingmanServiceAppItem struct {
	Status AppServiceStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
	Alias  string           `json:"alias,omitempty"`
}

// LogLevelName mirrors the level field accepted on LogItem.
type LogLevelName string

const (
	LogTrace LogLevelName = "trace"
	LogDebug LogLevelName = "debug"
	LogInfo  LogLevelName = "info"
	LogWarn  LogLevelName = "warn"
	LogError LogLevelName = "error"
)

// LogItem is a transient entity: accepted from clients via POST /api/utils/log
// and forwarded to the structured log sink. It is never persisted.
type LogItem struct {
	Level   LogLevelName `json:"level"`
	Message string       `json:"message"`
	Source  string       `json:"source,omitempty"`
}
