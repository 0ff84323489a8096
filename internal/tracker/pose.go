package tracker

import (
	"math"

	"github.com/ironsheep/arbook-tracker/internal/geometry"
)

// report turns an accepted homography into a Result in the coordinates of
// the original frame, which was width x height pixels before resizing.
func (t *Tracker) report(img *TrainingImage, h geometry.Homography, q *query, width, height int) Result {
	train := trainingCorners(img)
	corners := geometry.PerspectiveTransform(h, train)

	object := make([]geometry.Point3, len(train))
	for i, c := range train {
		object[i] = geometry.Point3{X: c.X, Y: c.Y}
	}

	rotation := geometry.Identity()
	rvec, err := t.provider.SolvePose(corners, object, geometry.DefaultCamera(q.width, q.height))
	if err != nil {
		t.logger.Warn("pose solver failed, reporting identity rotation",
			"page", img.Page, "error", err)
	} else {
		rotation = geometry.Rodrigues(rvec)
	}

	sx := float64(width) / float64(q.width)
	sy := float64(height) / float64(q.height)

	res := Result{
		Found:    true,
		Page:     img.Page,
		Index:    img.Index,
		Rotation: rotation,
	}
	var sumX, sumY float64
	for i, c := range corners {
		c = c.Scale(sx, sy)
		res.Corners[i] = c
		sumX += c.X
		sumY += c.Y
	}
	res.Center = Pixel{X: int(math.Round(sumX / 4)), Y: int(math.Round(sumY / 4))}
	return res
}
