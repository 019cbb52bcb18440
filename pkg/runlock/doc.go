/*
Package runlock serializes runs that share a run key.

A Runner is single-writer per run key: two concurrent runs against the same
StateManager would interleave checkpoints. Manager queues callers of the same key
inside the process and, when a ports.Locker is configured, across processes too.
*/
package runlock
