// Package geometry provides the projective geometry behind page
// verification and pose recovery: homography fitting (normalized DLT and
// RANSAC), pinhole camera intrinsics, planar pose from a homography, and
// conversions between rotation matrices and axis-angle vectors.
//
// Matrices are 3x3 and row-major. Image coordinates have (0,0) at the
// top-left with y pointing down; camera coordinates follow the same
// convention with z pointing into the scene.
package geometry
