// Package l2frames owns Layer 2 (Frames) of the point cloud data model.
//
// Responsibilities: slicing a frame payload into fixed-stride records,
// decoding each one through L1, remapping sensor axes into renderer axes and
// normalising colour. Key types: Frame, FrameBuffer, Assembler.
//
// Dependency rule: L2 may depend on L1, but never on the gate or visualiser.
package l2frames
