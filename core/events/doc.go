// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - SlotEvent: dispatch run started for a time slot
//   - TripEvent: trip committed for a driver
//   - BatchFailureEvent: one driver's batch failed to assemble
//   - NotifyEvent: driver notification result
package events
