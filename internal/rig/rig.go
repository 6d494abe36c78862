// Package rig places the cameras of a multi-view capture rig along a
// parallax axis, symmetric about the rig centre.
package rig

import (
	"holoquilt/internal/mathutil"
	"holoquilt/internal/settings"
)

// Offset returns the displacement of view index along the rig for a given
// baseline. The centre view (or the midpoint of the two centre views) sits at
// zero and offsets are antisymmetric about it.
func Offset(viewCount, index int, baseline float32) float32 {
	return (float32(index) - float32(viewCount-1)/2) * baseline
}

// Rig describes a row of cameras.
type Rig struct {
	ViewCount  int
	Cols       int
	CameraStep float32 // lateral spacing between adjacent cameras
	FocusStep  float32 // per-view focal adjustment

	Origin mathutil.Vec3 // position of the rig centre
	Axis   mathutil.Vec3 // parallax direction, zero means +X
}

// FromSettings builds a rig centred at the origin for a calibration.
func FromSettings(s settings.Settings) Rig {
	return Rig{
		ViewCount:  s.ViewCount(),
		Cols:       s.Cols,
		CameraStep: s.CameraSpacingStep,
		FocusStep:  s.FocusSpacingStep,
		Axis:       mathutil.AxisX,
	}
}

// Pose is the placement of one camera.
type Pose struct {
	Index        int           `json:"index"`
	Col          int           `json:"col"`
	Row          int           `json:"row"`
	CameraOffset float32       `json:"camera_offset"`
	FocusOffset  float32       `json:"focus_offset"`
	Position     mathutil.Vec3 `json:"position"`
}

// Pose computes the placement of view index. Index is not range checked.
func (r Rig) Pose(index int) Pose {
	axis := r.Axis
	if axis.IsZero() {
		axis = mathutil.AxisX
	}
	axis = axis.Normalize()

	cols := r.Cols
	if cols < 1 {
		cols = r.ViewCount
	}

	cam := Offset(r.ViewCount, index, r.CameraStep)
	return Pose{
		Index:        index,
		Col:          index % cols,
		Row:          index / cols,
		CameraOffset: cam,
		FocusOffset:  Offset(r.ViewCount, index, r.FocusStep),
		Position:     r.Origin.Add(axis.Scale(cam)),
	}
}

// Plan returns the poses of every view in index order.
func (r Rig) Plan() []Pose {
	poses := make([]Pose, r.ViewCount)
	for i := range poses {
		poses[i] = r.Pose(i)
	}
	return poses
}
