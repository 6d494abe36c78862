// Command rigplan prints the camera rig a calibration file implies: where each
// view's camera sits and which quilt cell it fills.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"holoquilt/internal/mathutil"
	"holoquilt/internal/rig"
	"holoquilt/internal/settings"
)

func main() {
	settingsPath := flag.String("settings", "", "Path to the display calibration file")
	asJSON := flag.Bool("json", false, "Print the plan as JSON")
	origin := flag.String("origin", "0,0,0", "Rig centre as x,y,z")
	flag.Parse()

	if *settingsPath == "" && flag.NArg() > 0 {
		*settingsPath = flag.Arg(0)
	}
	if *settingsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: rigplan [-json] [-origin x,y,z] -settings visual.cfg")
		os.Exit(2)
	}

	s, err := settings.Load(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	r := rig.FromSettings(s)
	if _, err := fmt.Sscanf(*origin, "%g,%g,%g", &r.Origin[0], &r.Origin[1], &r.Origin[2]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad -origin %q: %v\n", *origin, err)
		os.Exit(1)
	}
	plan := r.Plan()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(plan); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("%s: %dx%d grid, %d views\n", *settingsPath, s.Cols, s.Rows, s.ViewCount())
	fmt.Printf("Camera baseline %g, focus baseline %g\n", s.CameraSpacingStep, s.FocusSpacingStep)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%5s %4s %4s %12s %12s  %s\n", "view", "col", "row", "camera", "focus", "position")
	for _, p := range plan {
		fmt.Printf("%5d %4d %4d %12.6f %12.6f  %s\n",
			p.Index, p.Col, p.Row, p.CameraOffset, p.FocusOffset, formatVec(p.Position))
	}
}

func formatVec(v mathutil.Vec3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v[0], v[1], v[2])
}
