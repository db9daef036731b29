// Package inflight coordinates a single outstanding request at a time.
//
// A Coordinator owns one pending-request slot. Submit starts a request on a
// coordinator-owned goroutine and returns immediately; the outcome is routed
// back to an Observer exactly once through a Dispatcher. A second Submit while
// a request is outstanding is rejected with ErrAlreadyInFlight. Cancel drops
// interest in the outstanding request, DetachObserver silences it, and Close
// tears the coordinator down and drains its goroutines.
//
// Completions that arrive after Cancel, or that belong to an older submission,
// are discarded by generation check and never reach an observer.
package inflight
