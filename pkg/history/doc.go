// Package history assembles bounded LLM conversations from the arguments a flow
// context carries: summaries and glossaries of previous chapters are replayed as
// synthetic question and answer turns, within a token budget.
package history
