package batch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"holoquilt/internal/mathutil"
	"holoquilt/internal/rig"
	"holoquilt/internal/viewset"
)

// ManifestEntry describes one view of the rig.
type ManifestEntry struct {
	Index        int           `json:"index"`
	Col          int           `json:"col"`
	Row          int           `json:"row"`
	File         string        `json:"file,omitempty"`
	CameraOffset float32       `json:"camera_offset"`
	FocusOffset  float32       `json:"focus_offset"`
	Position     mathutil.Vec3 `json:"position"`
}

// Manifest is the JSON document written next to a rendered frame.
type Manifest struct {
	Cols       int             `json:"cols"`
	Rows       int             `json:"rows"`
	ViewWidth  int             `json:"view_width"`
	ViewHeight int             `json:"view_height"`
	Mode       string          `json:"mode"`
	Output     string          `json:"output,omitempty"`
	Views      []ManifestEntry `json:"views"`
}

// Entries joins the rig plan with the files each view came from.
func Entries(plan []rig.Pose, views []viewset.View) []ManifestEntry {
	files := make(map[int]string, len(views))
	for _, v := range views {
		files[v.Index] = filepath.Base(v.Path)
	}

	entries := make([]ManifestEntry, len(plan))
	for i, p := range plan {
		entries[i] = ManifestEntry{
			Index:        p.Index,
			Col:          p.Col,
			Row:          p.Row,
			File:         files[p.Index],
			CameraOffset: p.CameraOffset,
			FocusOffset:  p.FocusOffset,
			Position:     p.Position,
		}
	}
	return entries
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
