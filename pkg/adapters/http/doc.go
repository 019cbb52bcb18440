// Package http serves a read-mostly view of checkpoint stores: run listings,
// single checkpoints, deletion, health and Prometheus metrics.
package http
