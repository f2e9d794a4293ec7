// Package orchestrator coordinates the four agent roles of a story into one
// continuation.
//
// An Orchestrator is bound to a single story. It moves from Uninitialized
// through Initializing to Ready, building one narrative director, one world
// state agent, one memory curator and one character agent per character.
// GenerateStoryContinuation then runs the pipeline
//
//	director -> world state -> memory curator -> characters (concurrent)
//	         -> synthesis -> persist section + state update (one transaction)
//
// Every agent stage is wrapped with fallback.WithFallback, so a failing
// provider degrades the stage instead of aborting the run. Only missing
// entities and storage failures reach the caller as errors.
//
// A Registry hands out at most one live Orchestrator per story id.
package orchestrator
