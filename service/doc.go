// Package service exposes the story entities to callers outside the
// generation pipeline: creating stories and their cast, editing characters,
// locations, relationships and events, and reading their change history.
//
// Every mutation that alters an existing entity runs in one store
// transaction together with the change row that records it.
package service
