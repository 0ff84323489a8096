package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNonPlanar is returned when object points do not all lie on z = 0.
var ErrNonPlanar = errors.New("object points are not planar")

// CameraMatrix holds pinhole intrinsics. Lens distortion is not modelled.
type CameraMatrix struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// DefaultCamera returns the uncalibrated camera used for pose estimation:
// both focal lengths equal the image width and the principal point is the
// image centre.
func DefaultCamera(width, height int) CameraMatrix {
	return CameraMatrix{
		Fx: float64(width),
		Fy: float64(width),
		Cx: float64(width) / 2,
		Cy: float64(height) / 2,
	}
}

// Mat returns K.
func (k CameraMatrix) Mat() Mat3 {
	return Mat3{k.Fx, 0, k.Cx, 0, k.Fy, k.Cy, 0, 0, 1}
}

// Inverse returns K⁻¹.
func (k CameraMatrix) Inverse() Mat3 {
	return Mat3{1 / k.Fx, 0, -k.Cx / k.Fx, 0, 1 / k.Fy, -k.Cy / k.Fy, 0, 0, 1}
}

// PoseFromHomography decomposes a plane-to-image homography into the
// rotation and translation of the plane in camera coordinates. The plane is
// placed in front of the camera.
func PoseFromHomography(h Homography, k CameraMatrix) (Mat3, Vec3, error) {
	m := k.Inverse().Mul(Mat3(h))
	m1, m2, m3 := m.Col(0), m.Col(1), m.Col(2)

	n1, n2 := m1.Norm(), m2.Norm()
	if n1 < 1e-12 || n2 < 1e-12 {
		return Mat3{}, Vec3{}, fmt.Errorf("homography has a null column: %w", ErrDegenerate)
	}
	lambda := 2 / (n1 + n2)
	if m3[2] < 0 {
		lambda = -lambda
	}
	r1, r2, t := m1.Scale(lambda), m2.Scale(lambda), m3.Scale(lambda)

	r, err := nearestRotation(FromCols(r1, r2, r1.Cross(r2)))
	if err != nil {
		return Mat3{}, Vec3{}, err
	}
	return r, t, nil
}

// nearestRotation projects m onto SO(3) in the Frobenius sense.
func nearestRotation(m Mat3) (Mat3, error) {
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(3, 3, m[:]), mat.SVDFull) {
		return Mat3{}, fmt.Errorf("svd failed: %w", ErrDegenerate)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = r.At(i, j)
		}
	}
	return out, nil
}

// SolvePlanarPose estimates the pose of a planar object (all object points
// on z = 0) from at least four image correspondences. It returns the
// rotation as an axis-angle vector and the translation.
func SolvePlanarPose(imagePts []Point, objectPts []Point3, k CameraMatrix) (Vec3, Vec3, error) {
	if len(imagePts) != len(objectPts) {
		return Vec3{}, Vec3{}, fmt.Errorf("point count mismatch: %d vs %d", len(imagePts), len(objectPts))
	}
	plane := make([]Point, len(objectPts))
	for i, p := range objectPts {
		if math.Abs(p.Z) > 1e-9 {
			return Vec3{}, Vec3{}, ErrNonPlanar
		}
		plane[i] = Point{p.X, p.Y}
	}
	h, err := FitHomography(plane, imagePts)
	if err != nil {
		return Vec3{}, Vec3{}, err
	}
	r, t, err := PoseFromHomography(h, k)
	if err != nil {
		return Vec3{}, Vec3{}, err
	}
	return RotationVector(r), t, nil
}

// Rodrigues converts an axis-angle rotation vector into a rotation matrix.
func Rodrigues(rvec Vec3) Mat3 {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return Identity()
	}
	kx, ky, kz := rvec[0]/theta, rvec[1]/theta, rvec[2]/theta
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return Mat3{
		c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s,
		ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s,
		kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v,
	}
}

// RotationVector converts a rotation matrix into its axis-angle vector, the
// inverse of Rodrigues. The angle is in [0, pi].
func RotationVector(r Mat3) Vec3 {
	cos := (r[0] + r[4] + r[8] - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	theta := math.Acos(cos)
	if theta < 1e-12 {
		return Vec3{}
	}

	if math.Pi-theta > 1e-6 {
		f := theta / (2 * math.Sin(theta))
		return Vec3{(r[7] - r[5]) * f, (r[2] - r[6]) * f, (r[3] - r[1]) * f}
	}

	// Near pi the skew part vanishes; read the axis from the symmetric part.
	axis := Vec3{
		math.Sqrt(math.Max(0, (r[0]+1)/2)),
		math.Sqrt(math.Max(0, (r[4]+1)/2)),
		math.Sqrt(math.Max(0, (r[8]+1)/2)),
	}
	lead := 0
	for i := 1; i < 3; i++ {
		if axis[i] > axis[lead] {
			lead = i
		}
	}
	for i := 0; i < 3; i++ {
		if i != lead && r.At(lead, i)+r.At(i, lead) < 0 {
			axis[i] = -axis[i]
		}
	}
	return axis.Scale(theta / axis.Norm())
}
