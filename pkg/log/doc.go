// Package log captures protocol and device events for offline analysis.
//
// It is separate from operational logging (slog). Operational logs say what
// the process is doing; protocol capture records every frame, message,
// session change and sensor sample as a machine-readable trace.
//
// # Basic Usage
//
//	// Console during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// File capture
//	fl, _ := log.NewFileLogger("/var/log/mash-sensor/device.mlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Layers
//
//   - Transport: raw frames (FrameEvent)
//   - Wire: decoded requests, responses and notifications (MessageEvent)
//   - Service: session and subscription lifecycle (StateChangeEvent)
//   - Device: sensor samples and button edges (SampleEvent)
//
// Errors at any layer are recorded as ErrorEventData.
//
// # File Format
//
// A log file is a sequence of CBOR-encoded events with integer keys, usually
// named *.mlog. The mash-log command prints and filters them.
package log
