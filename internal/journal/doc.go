// Package journal records finished animation runs.
//
// Only facts about completed, canceled or failed runs are kept; animation
// state itself is never persisted or restored.
package journal
