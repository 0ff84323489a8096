// Package features implements a pure-Go binary feature pipeline: FAST-9
// corners detected on a 2:1 image pyramid, intensity-centroid orientation,
// 512-bit steered BRIEF descriptors, and brute-force Hamming knn matching.
//
// All coordinates are level-0 pixel coordinates with (0,0) at the top-left.
// Results are deterministic: the sampling pattern is seeded and every
// ordering step is stable.
package features
