// Package agent contains the four role-specialised narrative agents used by
// the orchestrator:
//
//  1. CharacterAgent: in-character reactions, dialogue and emotional state
//  2. WorldStateAgent: physical plausibility and world consistency
//  3. MemoryCuratorAgent: selection of relevant past events
//  4. NarrativeDirectorAgent: pacing, tension and story direction
//
// Every agent embeds BaseAgent, which owns the instruction block rendered at
// construction time and performs exactly one completion call per Run. The
// reply is decoded with a parse-or-default function: malformed output never
// surfaces as an error, it degrades to the variant's default record. Provider
// failures do surface as errors; callers wrap Run with fallback.WithFallback.
//
// Agents are stateless per call and safe for concurrent use.
package agent
