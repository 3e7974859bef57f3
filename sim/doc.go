// Package sim provides the cooking stage: a shared pool of capacity-limited units and
// buffers fed concurrently by independent production lines.
//
// # Reading Guide
//
// Start with these files to understand the kitchen:
//   - line.go: a production line, its inbound queue and its in-order outbound side
//   - cooker.go: admission (unit first fit, then buffer first fit) and promotion of
//     the first buffer head, in buffer order, that fits a unit
//   - kitchen.go: the round-robin scheduler loop and pause/resume feedback
//
// # Architecture
//
// Goroutines, all owned by a Server:
//   - one scheduler (Kitchen.Run) that admits items and promotes buffered ones
//   - one production goroutine per Line
//   - one timer goroutine (CompletionQueue.Run) that returns cooked items to their line
//
// Units and buffers guard their own state. Lock order is buffer, then unit, then the
// completion queue.
//
// Sub-packages:
//   - sim/trace/: decision trace recording
//   - sim/metrics/: prometheus collectors for occupancy and admission outcomes
package sim
