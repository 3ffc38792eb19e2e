// Package log captures parameter tree activity as structured events.
//
// It is separate from operational logging (slog): event capture produces a
// complete machine-readable trace of what the management side asked for,
// what the tree committed, and what was reported back.
//
// # Basic Usage
//
// A Recorder turns tree changes into events and hands them to a Logger:
//
//	rec := log.NewRecorder(log.NewSlogAdapter(slog.Default()), "")
//	tree, _ := model.NewTree(def, model.WithChangeListener(rec))
//
//	// Binary capture for later analysis
//	fl, _ := log.NewFileLogger("/var/lib/paramtree/events.plog")
//	rec := log.NewRecorder(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fl,
//	), "")
//
// # Event Types
//
// Events are captured at three layers:
//   - Wire: RPC requests and responses (MessageEvent)
//   - Tree: committed changes (ChangeEvent) and rejected operations (FaultEvent)
//   - Notify: reports handed to a notification sink (NotificationEvent)
//
// # File Format
//
// Log files are a plain concatenation of CBOR-encoded events with integer
// keys. Reader streams them back, optionally through a Filter.
package log
