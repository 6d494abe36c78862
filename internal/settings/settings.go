package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Keys every calibration file must define.
const (
	KeyCols               = "Cols"
	KeyRows               = "Rows"
	KeyTilt               = "Tilt"
	KeyPitch              = "Pitch"
	KeyCenter             = "Center"
	KeyViewPortionElement = "ViewPortionElement"
	KeySubp               = "Subp"
	KeyCameraSpacingStep  = "CameraSpacingStep"
	KeyFocusSpacingStep   = "FocusSpacingStep"
)

// RequiredKeys lists the keys Parse insists on, in file order of a typical calibration.
var RequiredKeys = []string{
	KeyCols, KeyRows,
	KeyTilt, KeyPitch, KeyCenter, KeyViewPortionElement, KeySubp,
	KeyCameraSpacingStep, KeyFocusSpacingStep,
}

// MaxViews bounds Cols*Rows. Real panels use tens of views.
const MaxViews = 1 << 16

var (
	ErrMissingKey  = errors.New("missing required key")
	ErrInvalidGrid = errors.New("grid must be at least 1x1")
	ErrInvalid     = errors.New("invalid value")
)

// Settings is the lenticular calibration of one display plus the rig baselines.
// Values are single precision, matching how the panel constants are consumed.
type Settings struct {
	Cols int
	Rows int

	Tilt               float32
	Pitch              float32
	Center             float32
	ViewPortionElement float32 // quilt fraction actually covered by cells
	Subp               float32

	CameraSpacingStep float32
	FocusSpacingStep  float32

	// Extra holds keys not recognised above.
	Extra map[string]float32
}

// ViewCount returns Rows*Cols.
func (s Settings) ViewCount() int {
	return s.Rows * s.Cols
}

// Cell returns the grid cell of a view index.
func (s Settings) Cell(index int) (col, row int) {
	return index % s.Cols, index / s.Cols
}

// Validate checks the grid and the float constants.
func (s Settings) Validate() error {
	if s.Cols < 1 || s.Rows < 1 {
		return fmt.Errorf("settings: %dx%d: %w", s.Cols, s.Rows, ErrInvalidGrid)
	}
	if s.Cols > MaxViews/s.Rows {
		return fmt.Errorf("settings: %dx%d: more than %d views: %w", s.Cols, s.Rows, MaxViews, ErrInvalidGrid)
	}
	if s.ViewPortionElement <= 0 {
		return fmt.Errorf("settings: %s=%g: %w", KeyViewPortionElement, s.ViewPortionElement, ErrInvalid)
	}
	return nil
}

// ParseError reports a malformed calibration line.
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("settings: %s:%d: %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a calibration file.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads key=value lines. Blank lines are skipped, surrounding whitespace is
// trimmed, and a repeated key keeps its last value. name is only used in errors.
func Parse(r io.Reader, name string) (Settings, error) {
	values := make(map[string]float32)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		key, value, err := splitLine(line)
		if err != nil {
			return Settings{}, &ParseError{Path: name, Line: lineNo, Text: line, Err: err}
		}
		values[key] = value
	}
	if err := sc.Err(); err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", name, err)
	}

	return fromValues(values)
}

// splitLine splits on runs of '=' so "Tilt==0.25" reads like "Tilt=0.25".
func splitLine(line string) (string, float32, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == '=' })
	if len(fields) != 2 {
		return "", 0, errors.New("expected key=value")
	}

	key := strings.TrimSpace(fields[0])
	raw := strings.TrimSpace(fields[1])
	if key == "" {
		return "", 0, errors.New("empty key")
	}

	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %q: %w", key, raw, ErrInvalid)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", 0, fmt.Errorf("%s: non-finite: %w", key, ErrInvalid)
	}
	return key, float32(v), nil
}

func fromValues(values map[string]float32) (Settings, error) {
	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := values[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Settings{}, fmt.Errorf("settings: %w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	// Bound the grid before truncating; huge floats have no int value.
	for _, k := range []string{KeyCols, KeyRows} {
		if v := values[k]; v > MaxViews {
			return Settings{}, fmt.Errorf("settings: %s=%g: more than %d views: %w", k, v, MaxViews, ErrInvalidGrid)
		}
	}

	s := Settings{
		Cols:               int(values[KeyCols]),
		Rows:               int(values[KeyRows]),
		Tilt:               values[KeyTilt],
		Pitch:              values[KeyPitch],
		Center:             values[KeyCenter],
		ViewPortionElement: values[KeyViewPortionElement],
		Subp:               values[KeySubp],
		CameraSpacingStep:  values[KeyCameraSpacingStep],
		FocusSpacingStep:   values[KeyFocusSpacingStep],
	}

	known := make(map[string]bool, len(RequiredKeys))
	for _, k := range RequiredKeys {
		known[k] = true
	}
	for k, v := range values {
		if known[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]float32)
		}
		s.Extra[k] = v
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ExtraKeys returns the unrecognised keys in sorted order.
func (s Settings) ExtraKeys() []string {
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write emits s in the calibration format, required keys first.
func (s Settings) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line := func(k string, v float64) {
		fmt.Fprintf(bw, "%s=%s\n", k, strconv.FormatFloat(v, 'g', -1, 32))
	}
	line(KeyCols, float64(s.Cols))
	line(KeyRows, float64(s.Rows))
	line(KeyTilt, float64(s.Tilt))
	line(KeyPitch, float64(s.Pitch))
	line(KeyCenter, float64(s.Center))
	line(KeyViewPortionElement, float64(s.ViewPortionElement))
	line(KeySubp, float64(s.Subp))
	line(KeyCameraSpacingStep, float64(s.CameraSpacingStep))
	line(KeyFocusSpacingStep, float64(s.FocusSpacingStep))
	for _, k := range s.ExtraKeys() {
		line(k, float64(s.Extra[k]))
	}
	return bw.Flush()
}
