package settings

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calibration = `Cols=5
Rows=9
Tilt=-0.1153
Pitch=47.58
Center=0.042
ViewPortionElement=0.99976
Subp=0.00013
CameraSpacingStep=0.02
FocusSpacingStep=0.001
`

func TestParseCalibration(t *testing.T) {
	s, err := Parse(strings.NewReader(calibration), "test.cfg")
	require.NoError(t, err)

	assert.Equal(t, 5, s.Cols)
	assert.Equal(t, 9, s.Rows)
	assert.Equal(t, 45, s.ViewCount())
	assert.Equal(t, float32(-0.1153), s.Tilt)
	assert.Equal(t, float32(47.58), s.Pitch)
	assert.Equal(t, float32(0.99976), s.ViewPortionElement)
	assert.Equal(t, float32(0.02), s.CameraSpacingStep)
	assert.Equal(t, float32(0.001), s.FocusSpacingStep)
	assert.Empty(t, s.Extra)
}

func TestParseTiltLine(t *testing.T) {
	in := strings.Replace(calibration, "Tilt=-0.1153", "Tilt=0.25", 1)
	s, err := Parse(strings.NewReader(in), "test.cfg")
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), s.Tilt)
}

func TestCell(t *testing.T) {
	s := Settings{Cols: 5, Rows: 9}
	col, row := s.Cell(22)
	assert.Equal(t, 2, col)
	assert.Equal(t, 4, row)
}

func TestParseLastWriteWins(t *testing.T) {
	s, err := Parse(strings.NewReader(calibration+"Pitch=12.5\n"), "test.cfg")
	require.NoError(t, err)
	assert.Equal(t, float32(12.5), s.Pitch)
}

func TestParseTolerance(t *testing.T) {
	in := "\n  Cols = 4 \r\nRows==2\n" + strings.Join(strings.Split(calibration, "\n")[2:], "\n")
	s, err := Parse(strings.NewReader(in), "test.cfg")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Cols)
	assert.Equal(t, 2, s.Rows)
}

func TestParseTruncatesGrid(t *testing.T) {
	in := strings.Replace(calibration, "Cols=5", "Cols=5.9", 1)
	s, err := Parse(strings.NewReader(in), "test.cfg")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Cols)
}

func TestParseExtraKeys(t *testing.T) {
	s, err := Parse(strings.NewReader(calibration+"InvView=1\nDPI=324\n"), "test.cfg")
	require.NoError(t, err)
	assert.Equal(t, []string{"DPI", "InvView"}, s.ExtraKeys())
	assert.Equal(t, float32(324), s.Extra["DPI"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		wantErr error
	}{
		{name: "no separator", input: "Cols 5\n", line: 1},
		{name: "empty key", input: "Cols=5\n=4\n", line: 2},
		{name: "non numeric", input: "Cols=five\n", line: 1, wantErr: ErrInvalid},
		{name: "non finite", input: "Cols=5\nTilt=NaN\n", line: 2, wantErr: ErrInvalid},
		{name: "overflow", input: "Pitch=1e60\n", line: 1, wantErr: ErrInvalid},
		{name: "too many fields", input: "Cols=5=6\n", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), "bad.cfg")
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, "bad.cfg", pe.Path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseMissingKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("Cols=5\nRows=9\n"), "short.cfg")
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), "Tilt")
	assert.Contains(t, err.Error(), "FocusSpacingStep")
	assert.NotContains(t, err.Error(), "Cols")
}

func TestParseInvalidGrid(t *testing.T) {
	for _, repl := range []string{"Cols=0", "Cols=0.5", "Cols=-3"} {
		in := strings.Replace(calibration, "Cols=5", repl, 1)
		_, err := Parse(strings.NewReader(in), "grid.cfg")
		assert.ErrorIs(t, err, ErrInvalidGrid, repl)
	}
}

func TestParseOversizedGrid(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows string
	}{
		{name: "too many views", cols: "Cols=100000", rows: "Rows=100000"},
		{name: "product over limit", cols: "Cols=300", rows: "Rows=300"},
		{name: "beyond int", cols: "Cols=1e10", rows: "Rows=1e10"},
		{name: "beyond float32 int range", cols: "Cols=1e30", rows: "Rows=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.Replace(calibration, "Cols=5", tt.cols, 1)
			in = strings.Replace(in, "Rows=9", tt.rows, 1)
			_, err := Parse(strings.NewReader(in), "big.cfg")
			assert.ErrorIs(t, err, ErrInvalidGrid)
		})
	}
}

func TestValidateViewLimit(t *testing.T) {
	ok := Settings{Cols: 256, Rows: 256, ViewPortionElement: 1}
	assert.NoError(t, ok.Validate())

	over := Settings{Cols: 257, Rows: 256, ViewPortionElement: 1}
	assert.ErrorIs(t, over.Validate(), ErrInvalidGrid)

	huge := Settings{Cols: math.MaxInt, Rows: math.MaxInt, ViewPortionElement: 1}
	assert.ErrorIs(t, huge.Validate(), ErrInvalidGrid)
}

func TestParseErrorKeepsValue(t *testing.T) {
	_, err := Parse(strings.NewReader("Pitch=4x7\n"), "bad.cfg")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `"4x7"`)
}

func TestParseZeroPortion(t *testing.T) {
	in := strings.Replace(calibration, "ViewPortionElement=0.99976", "ViewPortionElement=0", 1)
	_, err := Parse(strings.NewReader(in), "vpe.cfg")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visual.cfg")
	require.NoError(t, os.WriteFile(path, []byte(calibration), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, s.ViewCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cfg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "settings: open")
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := Parse(strings.NewReader(calibration+"DPI=324\n"), "test.cfg")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Cols=5\nRows=9\n"))

	back, err := Parse(&buf, "roundtrip.cfg")
	require.NoError(t, err)
	assert.Equal(t, s, back)
}
