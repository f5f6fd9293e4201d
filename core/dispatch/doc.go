// Package dispatch implements the shuttle dispatch engine: it groups
// waiting requests of a time slot into per-driver batches bounded by
// seat capacity, assembles an ordered stop sequence per batch via a
// route optimizer, commits trips through conditional store updates and
// notifies the assigned drivers.
package dispatch
