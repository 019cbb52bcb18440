// Package cli holds the command implementations of the tessera binary:
// backend wiring, scheduling, the status table and the chapter run itself.
package cli
