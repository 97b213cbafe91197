// Package l1records owns Layer 1 (Records) of the point cloud data model.
//
// Responsibilities: interpreting the self-describing field layout carried by
// every frame and decoding one fixed-stride record into a PointRecord.
// Key types: FieldDescriptor, Layout, PointRecord.
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1records
