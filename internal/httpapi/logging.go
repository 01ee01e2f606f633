package httpapi

import (
	"log"

	"github.com/rs/zerolog"

	"wingmand/pkg/types"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// logItem forwards a client-submitted LogItem (POST /api/utils/log) to the
// structured log sink. LogItem is transient: it is never persisted.
func logItem(item types.LogItem) {
	if zlog == nil {
		log.Printf("[%s] %s: %s", item.Level, item.Source, item.Message)
		return
	}
	ev := levelEvent(item.Level)
	ev.Str("source", item.Source).Msg(item.Message)
}

func levelEvent(level types.LogLevelName) *zerolog.Event {
	switch level {
	case types.LogTrace:
		return zlog.Trace()
	case types.LogDebug:
		return zlog.Debug()
	case types.LogWarn:
		return zlog.Warn()
	case types.LogError:
		return zlog.Error()
	default:
		return zlog.Info()
	}
}
