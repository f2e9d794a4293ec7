// Package core provides the foundational domain types and contracts used by
// StoryMesh. It defines:
//
//   - Stories and their ordered sections
//   - Characters, locations, relationships and events owned by a story
//   - Append-only change logs attributing state transitions to a section
//   - The persistence contracts (Repository, Store) implemented by store/*
//   - The error taxonomy shared by services and the orchestrator
//
// The package intentionally keeps implementation concerns (persistence,
// generation, orchestration) out of scope, exposing small interfaces so
// backends can be swapped without touching the narrative pipeline.
package core
