// Package imaging holds the pixel-level side of page recognition: validated
// views over camera buffers, grayscale conversion and resizing, image file
// loading, and overlay rendering and cropping for debugging.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Every image produced by this
// package is anchored at the origin.
//
// # Frames
//
// A Frame is a read-only view over a 4-byte-per-pixel buffer as delivered by a
// camera or decoded from a file. NewFrame and NewFrameWithStride validate the
// buffer against its declared dimensions once; a malformed buffer is rejected
// with ErrBufferSize and never reaches the recognizer.
//
// # Preprocessing
//
// ToGray, ResizeShortSide, Blur and HalfSize are the fixed preprocessing
// steps of the recognizer. Resampling and blurring are delegated to
// github.com/disintegration/imaging; shrinking always averages pixel areas so
// that an exact 2:1 reduction of an image reproduces the averaged pixels
// bit for bit.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless.
package imaging
