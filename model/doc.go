// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside StoryMesh.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Offer Complete, the plain text-completion call agents rely on
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, OpenAI-compatible endpoints) implement the
// Model interface from this package so higher layers (agents, orchestrator)
// remain decoupled from vendor SDKs.
package model
