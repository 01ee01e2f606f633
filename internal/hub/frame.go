// Package hub implements the Metrics Bus (C4): a single in-process queue of
// JSON frames, drained once per second to every live subscriber and to a
// rolling log file. Per the redesign note in the distilled design, the
// former global mutable subscriber vector and send queue are collected here
// into one value owned by the Control API and passed by reference to every
// producer; producers only ever call Publish, which is safe from any thread.
package hub

// Frame is one JSON-serializable metrics event. Keys follow the producer's
// vocabulary (DownloadItems, WingmanItems, AppItems, timing) so subscribers
// can discriminate by presence of a key rather than a type tag.
type Frame map[string]any

// DownloadFrame wraps a batch of download rows, as produced by the
// Downloader on progress and by the Lifecycle Manager's periodic snapshot.
func DownloadFrame(items any) Frame {
	return Frame{"DownloadItems": items}
}

// WingmanFrame wraps a batch of inference rows.
func WingmanFrame(items any) Frame {
	return Frame{"WingmanItems": items}
}

// AppFrame wraps a batch of app-status rows.
func AppFrame(items any) Frame {
	return Frame{"AppItems": items}
}

// TimingFrame wraps a single timing report from the model runtime, tagged
// with the alias it came from.
func TimingFrame(alias string, timing any) Frame {
	return Frame{"alias": alias, "timing": timing}
}
