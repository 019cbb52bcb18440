// Package chapters is the chapter-processing flow run by the tessera CLI.
//
// Each state persists its output as a JSON record per chapter; later states
// bootstrap their context from those records, so a state can resume without
// replaying the states before it.
package chapters
