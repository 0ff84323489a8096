//go:build !gocv

package vision

// NewOpenCV reports that OpenCV support was not compiled in.
func NewOpenCV() (Provider, error) {
	return nil, ErrOpenCVUnavailable
}

// OpenCVAvailable reports whether the OpenCV provider can be constructed.
func OpenCVAvailable() bool { return false }
