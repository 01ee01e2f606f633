// Package download implements the Downloader (C2): a single worker that
// drains the download queue, streams bytes to disk, and reports byte-level
// progress through the Store and the Metrics Bus.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"wingmand/internal/hub"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

var log *zerolog.Logger

// SetLogger installs a structured logger for the download package.
func SetLogger(l zerolog.Logger) { log = &l }

func logf() *zerolog.Event {
	if log == nil {
		return nil
	}
	return log.Debug()
}

// Service is the Downloader worker. One Service processes the whole queue;
// the store's FIFO ordering and a single network transfer at a time avoid
// bandwidth contention by design.
type Service struct {
	store     *store.Store
	cfg       Config
	publisher Publisher
	client    *http.Client
}

// New constructs a Service with the given Store and config. If pub is nil,
// published frames are discarded (useful in tests that only assert on
// Store state).
func New(st *store.Store, cfg Config, pub Publisher) *Service {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Service{
		store:     st,
		cfg:       cfg.withDefaults(),
		publisher: pub,
		client:    &http.Client{},
	}
}

// modelsDir is the directory completed artifacts and in-flight downloads
// land in, relative to the service's home directory.
func (s *Service) modelsDir() string {
	return ModelsDir(s.cfg.HomeDir)
}

// ModelsDir returns the managed models directory for a given home
// directory. Exported so other components (the Inference Supervisor, the
// Control API) can resolve a completed artifact's on-disk path without
// depending on a running Service.
func ModelsDir(homeDir string) string {
	return filepath.Join(homeDir, "models")
}

// Run executes the Downloader's main loop until ctx is cancelled. It never
// returns an error for ordinary operation failures — those are recorded on
// the affected row and published as service status, per the error-handling
// design — only for a store/home-directory problem it cannot recover from.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.modelsDir(), 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	s.initialize()

	ticker := time.NewTicker(s.cfg.QueueCheckInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			break
		}
		s.updateServerStatus(types.AppReady, nil, "")

		if item, ok, err := s.store.Downloads.GetNextQueued(types.DownloadDownloading); err != nil {
			if e := logf(); e != nil {
				e.Err(err).Msg("download: GetNextQueued failed")
			}
		} else if ok {
			s.updateServerStatus(types.AppPreparing, &item, "")
			s.processDownload(ctx, item)
			s.updateServerStatus(types.AppReady, nil, "")
		}

		s.runOrphanedDownloadCleanup()

		select {
		case <-ctx.Done():
			s.updateServerStatus(types.AppStopping, nil, "")
			s.updateServerStatus(types.AppStopped, nil, "")
			return nil
		case <-ticker.C:
		}
	}
	s.updateServerStatus(types.AppStopped, nil, "")
	return nil
}

// initialize publishes a fresh starting status and runs the same
// reconciliation the main loop performs every cycle, so a restarted
// Downloader immediately repairs anything the Lifecycle Manager's
// crash-reconciliation pass left for it.
func (s *Service) initialize() {
	s.updateServerStatus(types.AppStarting, nil, "")
	s.runOrphanedDownloadCleanup()
	if err := s.store.Downloads.Reset(); err != nil && logf() != nil {
		logf().Err(err).Msg("download: initialize Reset failed")
	}
}

// processDownload drives one row from downloading through to a terminal
// status, streaming the registry URL to the on-disk target.
func (s *Service) processDownload(ctx context.Context, item types.DownloadItem) {
	path := OutputPath(s.modelsDir(), item.ModelRepo, item.FilePath)
	if err := s.stream(ctx, &item, path); err != nil {
		item.Status = types.DownloadError
		item.Error = err.Error()
		if serr := s.store.Downloads.Set(item); serr != nil && logf() != nil {
			logf().Err(serr).Msg("download: failed to record transport error")
		}
		s.publishDownloads()
		return
	}
}

// stream performs the HTTP GET and copies the body to disk, updating the
// row's progress at most once per cfg.ProgressInterval and checking for an
// operator-issued cancellation at every chunk boundary.
func (s *Service) stream(ctx context.Context, item *types.DownloadItem, path string) error {
	url := urlForModel(s.cfg.BaseURL, item.ModelRepo, item.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	item.TotalBytes = resp.ContentLength
	if item.TotalBytes < 0 {
		item.TotalBytes = 0
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	lastPublish := time.Time{}
	for {
		if cancelled, err := s.isCancelled(item.ModelRepo, item.FilePath); err != nil {
			return err
		} else if cancelled {
			return nil
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", path, werr)
			}
			item.DownloadedBytes += int64(n)
			if item.TotalBytes > 0 {
				item.Progress = 100 * float64(item.DownloadedBytes) / float64(item.TotalBytes)
			}
			if time.Since(lastPublish) >= s.cfg.ProgressInterval {
				if serr := s.store.Downloads.Set(*item); serr != nil && logf() != nil {
					logf().Err(serr).Msg("download: progress Set failed")
				}
				s.publishDownloads()
				lastPublish = time.Now()
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return fmt.Errorf("read body: %w", rerr)
		}
	}

	item.Progress = 100
	item.Status = types.DownloadComplete
	if err := s.store.Downloads.Set(*item); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	s.publishDownloads()
	return nil
}

// isCancelled re-reads the row to see if the client flipped it to cancelled
// mid-transfer; the transfer aborts at the next chunk boundary per §4.2.
func (s *Service) isCancelled(modelRepo, filePath string) (bool, error) {
	current, err := s.store.Downloads.Get(modelRepo, filePath)
	if store.IsNotFound(err) {
		// removed out from under us; treat like cancellation
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return current.Status == types.DownloadCancelled, nil
}

// runOrphanedDownloadCleanup reconciles the Store against the filesystem in
// both directions: rows claiming completeness whose file vanished, and
// files on disk with no corresponding row.
func (s *Service) runOrphanedDownloadCleanup() {
	completed, err := s.store.Downloads.GetByStatus(types.DownloadComplete)
	if err != nil {
		if e := logf(); e != nil {
			e.Err(err).Msg("download: cleanup GetByStatus failed")
		}
		return
	}
	for _, d := range completed {
		path := OutputPath(s.modelsDir(), d.ModelRepo, d.FilePath)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if rerr := s.store.Downloads.Remove(d.ModelRepo, d.FilePath); rerr != nil && logf() != nil {
				logf().Err(rerr).Str("modelRepo", d.ModelRepo).Str("filePath", d.FilePath).
					Msg("download: failed to remove orphaned row")
			}
		}
	}

	entries, err := os.ReadDir(s.modelsDir())
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		modelRepo, filePath, ok := DecodeFilename(entry.Name())
		if !ok {
			continue
		}
		if _, err := s.store.Downloads.Get(modelRepo, filePath); store.IsNotFound(err) {
			full := filepath.Join(s.modelsDir(), entry.Name())
			if e := logf(); e != nil {
				e.Str("path", full).Msg("download: removing orphaned file with no row")
			}
			_ = os.Remove(full)
		}
	}
}

func (s *Service) publishDownloads() {
	all, err := s.store.Downloads.GetAll("", "")
	if err != nil {
		return
	}
	s.publisher.Publish(hub.DownloadFrame(all))
}

// updateServerStatus publishes the Downloader's self-status to the Store's
// AppItem row, optionally attaching the item currently being processed and
// an error string, mirroring the teacher's onServiceStatus callback.
func (s *Service) updateServerStatus(status types.AppServiceStatus, current *types.DownloadItem, errMsg string) {
	appItem, err := s.store.Apps.GetDownloadServerApp()
	if err != nil {
		return
	}
	appItem.Status = status
	if errMsg != "" {
		appItem.Error = errMsg
	}
	if current != nil {
		appItem.CurrentDownload = current
	} else {
		appItem.CurrentDownload = nil
	}
	if err := s.store.Apps.SetDownloadServerApp(appItem); err != nil && logf() != nil {
		logf().Err(err).Msg("download: failed to publish server status")
	}
	s.publisher.Publish(hub.AppFrame([]types.DownloadServerAppItem{appItem}))
}
