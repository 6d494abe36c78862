// Package injector hosts the quilt pipeline inside a rendering application:
// the host renders each rig view, hands it to CaptureRender, and calls Render
// once per frame to produce either the interleaved panel image or a quilt
// preview.
//
// An Injector is driven from a single goroutine. CaptureRender and Render
// must not be called concurrently on the same Injector.
package injector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"holoquilt/internal/lenticular"
	"holoquilt/internal/quilt"
	"holoquilt/internal/rig"
	"holoquilt/internal/settings"
)

var (
	ErrIncompleteFrame = errors.New("frame incomplete")
	ErrClosed          = errors.New("injector closed")
	ErrNoTarget        = errors.New("nil render target")
)

type options struct {
	workers      int
	filter       quilt.Filter
	allowPartial bool
}

// Option configures an Injector.
type Option func(*options)

// WithWorkers bounds the goroutines used by Render. n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithFilter selects how the quilt is sampled. The default is quilt.Linear.
func WithFilter(f quilt.Filter) Option {
	return func(o *options) { o.filter = f }
}

// AllowPartialFrames lets Render(Holo) run before every view of the frame was
// captured; uncaptured cells keep whatever the previous frame left there.
func AllowPartialFrames() Option {
	return func(o *options) { o.allowPartial = true }
}

// Injector owns the quilt for one display calibration.
type Injector struct {
	settings settings.Settings
	rig      rig.Rig
	buf      *quilt.Buffer
	comp     *quilt.Compositor
	mapper   *lenticular.Mapper
	opts     options

	frames int
	closed bool
}

// New loads the calibration at settingsPath and allocates a quilt for views
// of viewW x viewH pixels.
func New(viewW, viewH int, settingsPath string, opts ...Option) (*Injector, error) {
	s, err := settings.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	return NewWithSettings(viewW, viewH, s, opts...)
}

// NewWithSettings is New with an already parsed calibration.
func NewWithSettings(viewW, viewH int, s settings.Settings, opts ...Option) (*Injector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	o := options{filter: quilt.Linear}
	for _, opt := range opts {
		opt(&o)
	}

	buf, err := quilt.NewBuffer(viewW, viewH, s.Cols, s.Rows)
	if err != nil {
		return nil, fmt.Errorf("injector: allocate quilt: %w", err)
	}
	buf.SetFilter(o.filter)

	inj := &Injector{
		settings: s,
		rig:      rig.FromSettings(s),
		buf:      buf,
		comp:     quilt.NewCompositor(buf),
		mapper: &lenticular.Mapper{
			Params:  lenticular.ParamsFrom(s),
			Quilt:   buf,
			Workers: o.workers,
		},
		opts: o,
	}

	log := Logger()
	for _, k := range s.ExtraKeys() {
		log.Warn("unrecognised calibration key", "key", k, "value", s.Extra[k])
	}
	log.Info("quilt allocated",
		"cols", s.Cols, "rows", s.Rows,
		"view_width", viewW, "view_height", viewH,
		"quilt_width", buf.Width(), "quilt_height", buf.Height(),
		"filter", o.filter.String())

	return inj, nil
}

// CaptureRender copies a finished view into its quilt cell.
func (inj *Injector) CaptureRender(viewIndex int, src image.Image) error {
	if inj.closed {
		return ErrClosed
	}
	if src == nil {
		return fmt.Errorf("injector: capture %d: nil source", viewIndex)
	}
	if err := inj.comp.Capture(viewIndex, src); err != nil {
		return err
	}
	Logger().Debug("view captured", "index", viewIndex, "bounds", src.Bounds().String())
	return nil
}

// Render produces one output frame into dst.
//
// In Holo mode every view must have been captured since the previous Holo
// render unless AllowPartialFrames was set; a successful Holo render starts a
// new frame. Quilt mode never checks or resets the frame. Unknown modes
// return ErrUnknownMode without touching dst.
func (inj *Injector) Render(ctx context.Context, mode Mode, dst *image.NRGBA) error {
	if inj.closed {
		return ErrClosed
	}
	if dst == nil {
		return ErrNoTarget
	}

	switch mode {
	case Quilt:
		return lenticular.Run(ctx, dst, inj.opts.workers, inj.buf.Sample)

	case Holo:
		if !inj.opts.allowPartial && !inj.comp.Complete() {
			return fmt.Errorf("injector: %w: missing views %s", ErrIncompleteFrame, formatIndices(inj.comp.Missing()))
		}
		if err := inj.mapper.Render(ctx, dst); err != nil {
			return fmt.Errorf("injector: render: %w", err)
		}
		inj.comp.Reset()
		inj.frames++
		Logger().Debug("frame synthesized", "frame", inj.frames, "bounds", dst.Bounds().String())
		return nil
	}

	return fmt.Errorf("injector: %v: %w", mode, ErrUnknownMode)
}

func formatIndices(idx []int) string {
	const limit = 8
	parts := make([]string, 0, limit+1)
	for i, v := range idx {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... (%d total)", len(idx)))
			break
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ViewCount returns Rows*Cols.
func (inj *Injector) ViewCount() int {
	return inj.settings.ViewCount()
}

// ViewOffset returns the rig displacement of viewIndex for a baseline.
func (inj *Injector) ViewOffset(viewIndex int, baseline float32) float32 {
	return rig.Offset(inj.ViewCount(), viewIndex, baseline)
}

// CameraBaseline is the configured lateral spacing between cameras.
func (inj *Injector) CameraBaseline() float32 {
	return inj.settings.CameraSpacingStep
}

// FocusBaseline is the configured per-view focal spacing.
func (inj *Injector) FocusBaseline() float32 {
	return inj.settings.FocusSpacingStep
}

func (inj *Injector) Settings() settings.Settings { return inj.settings }

func (inj *Injector) Rig() rig.Rig { return inj.rig }

// Quilt exposes the quilt buffer, for previews. After Close it is released
// and reads as transparent black.
func (inj *Injector) Quilt() *quilt.Buffer { return inj.buf }

// Missing lists the views not captured in the current frame.
func (inj *Injector) Missing() []int { return inj.comp.Missing() }

// Frames counts successful Holo renders.
func (inj *Injector) Frames() int { return inj.frames }

// Close releases the quilt. Later calls return ErrClosed; Close itself may be
// called repeatedly.
func (inj *Injector) Close() error {
	if inj.closed {
		return nil
	}
	inj.closed = true
	inj.buf.Release()
	Logger().Info("quilt released", "frames", inj.frames)
	return nil
}
