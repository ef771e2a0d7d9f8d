// Package geometry holds the value types used to describe a detector setup
// (solids, placement descriptors, units) and the volume tree they realize
// into.
//
// Lengths are stored in millimetres, times in nanoseconds and energies in
// MeV. Every placed volume carries a copy number; copy numbers of non-world,
// non-pipe volumes are unique within a tree and double as the layer id of
// recorded hits.
package geometry
