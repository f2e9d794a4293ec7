// Package logging provides a minimal logging interface and adapters for StoryMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that agents, the orchestrator and the stores use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StoryLogger with component / story context and stage helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := storymesh.New(model, func(o *storymesh.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
