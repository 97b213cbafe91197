// Package pipeline wires the point cloud stages together.
//
// HandleFrame is the producer-side subscription callback: it admits a frame
// through the single-slot gate, assembles it and parks the result. Tick is
// the consumer-side render step: it publishes a parked result at the current
// anchor pose and reopens the gate. The two run on different goroutines.
package pipeline
