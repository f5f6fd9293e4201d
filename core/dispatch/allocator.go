package dispatch

import "github.com/ngochaukiet2005/shuttle-dispatch/core/model"

// CapacityAllocator partitions an ordered queue of waiting requests
// into per-driver batches. Allocation is purely positional: the first
// capacity-many requests go to the first driver, the next slice to the
// second, until requests or drivers run out. Requests left over stay
// waiting for a later run.
type CapacityAllocator struct{}

// Allocate produces the (driver, batch) pairs for one dispatch run.
// Requests must be ordered FIFO by creation time and drivers by
// registration order; both orders are preserved.
func (CapacityAllocator) Allocate(requests []model.ShuttleRequest, drivers []model.Driver) []Batch {
	var batches []Batch
	next := 0
	for _, d := range drivers {
		if next >= len(requests) {
			break
		}
		if d.Capacity <= 0 {
			continue
		}
		end := next + d.Capacity
		if end > len(requests) {
			end = len(requests)
		}
		batches = append(batches, Batch{Driver: d, Requests: requests[next:end]})
		next = end
	}
	return batches
}
