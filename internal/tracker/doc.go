// Package tracker recognizes registered reference images, such as book
// pages, in camera frames and reports where each one sits and how it is
// rotated.
//
// # Training
//
// Images are added with Register, which converts them to grayscale, scales
// the short side to Params.TrainSize and blurs them lightly. Finalize then
// extracts keypoints and descriptors through the vision.Provider. Very
// detailed pages keep only their strongest keypoints.
//
// # Recognition
//
// ProcessFrame scales the frame so its short side is Params.QuerySize and
// extracts features from it. Candidate images are chosen by a small state
// machine: after a page is found it is the only candidate for the following
// frames, and a full scan in registration order resumes only after
// Params.PredictionAttempts consecutive misses.
//
// A candidate is accepted when
//
//   - enough nearest-neighbour matches survive the ratio test and the
//     distance ceiling,
//   - a RANSAC homography explains at least Params.RequiredInliers of them.
//
// The first accepted candidate wins. Its corners are projected into the
// frame and the page rotation is solved with a pinhole camera whose focal
// length equals the frame width.
//
// # Thread Safety
//
// A Tracker holds per-sequence state and must not be shared between
// goroutines without external locking.
package tracker
