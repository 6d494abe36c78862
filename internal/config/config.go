// Package config loads the holoquilt tool configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	SettingsPath  string `json:"settings" toml:"settings"`
	ViewsDir      string `json:"views_dir" toml:"views_dir"`
	Output        string `json:"output" toml:"output"`
	QuiltOutput   string `json:"quilt_output" toml:"quilt_output"`
	PreviewOutput string `json:"preview_output" toml:"preview_output"`
	Manifest      string `json:"manifest" toml:"manifest"`

	// Render settings
	Mode         string `json:"mode" toml:"mode"`
	Filter       string `json:"filter" toml:"filter"`
	OutputWidth  int    `json:"output_width" toml:"output_width"`
	OutputHeight int    `json:"output_height" toml:"output_height"`
	PreviewSize  int    `json:"preview_size" toml:"preview_size"`
	JPEGQuality  int    `json:"jpeg_quality" toml:"jpeg_quality"`
	Workers      int    `json:"workers" toml:"workers"`
	Grid         bool   `json:"grid" toml:"grid"`
	AllowPartial bool   `json:"allow_partial" toml:"allow_partial"`

	// dir is the directory of the loaded file; relative paths resolve against it.
	dir string
}

// Load reads a JSON or TOML config file, chosen by extension (.toml is TOML,
// anything else JSON). Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: expand %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	SettingsPath  string
	ViewsDir      string
	Output        string
	QuiltOutput   string
	PreviewOutput string
	Manifest      string
	Mode          string
	Filter        string
	OutputWidth   int
	OutputHeight  int
	Workers       int
	Grid          bool
	AllowPartial  bool
}

// Resolve applies flag overrides, expands ~ and makes file paths from the
// config absolute relative to its directory. Flag paths are used as given.
func (c *Config) Resolve(flags Flags) error {
	paths := []*string{&c.SettingsPath, &c.ViewsDir, &c.Output, &c.QuiltOutput, &c.PreviewOutput, &c.Manifest}
	for _, p := range paths {
		if err := c.resolvePath(p); err != nil {
			return err
		}
	}

	// CLI flags override config file
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.SettingsPath, flags.SettingsPath)
	override(&c.ViewsDir, flags.ViewsDir)
	override(&c.Output, flags.Output)
	override(&c.QuiltOutput, flags.QuiltOutput)
	override(&c.PreviewOutput, flags.PreviewOutput)
	override(&c.Manifest, flags.Manifest)
	override(&c.Mode, flags.Mode)
	override(&c.Filter, flags.Filter)
	if flags.OutputWidth > 0 {
		c.OutputWidth = flags.OutputWidth
	}
	if flags.OutputHeight > 0 {
		c.OutputHeight = flags.OutputHeight
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	c.Grid = c.Grid || flags.Grid
	c.AllowPartial = c.AllowPartial || flags.AllowPartial

	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: expand %s: %w", *p, err)
		}
		*p = expanded
	}

	// Defaults for render settings
	if c.Mode == "" {
		c.Mode = "holo"
	}
	if c.Filter == "" {
		c.Filter = "linear"
	}
	if c.PreviewSize <= 0 {
		c.PreviewSize = 512
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = 95
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c.Validate()
}

func (c *Config) resolvePath(p *string) error {
	if *p == "" {
		return nil
	}
	expanded, err := homedir.Expand(*p)
	if err != nil {
		return fmt.Errorf("config: expand %s: %w", *p, err)
	}
	if c.dir != "" && !filepath.IsAbs(expanded) {
		expanded = filepath.Join(c.dir, expanded)
	}
	*p = expanded
	return nil
}

// Validate reports settings the tool cannot run without.
func (c *Config) Validate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("config: no calibration file (set settings or -settings)")
	}
	if c.ViewsDir == "" {
		return fmt.Errorf("config: no views directory (set views_dir or -views)")
	}
	if (c.OutputWidth > 0) != (c.OutputHeight > 0) {
		return fmt.Errorf("config: output size %dx%d: set both or neither", c.OutputWidth, c.OutputHeight)
	}
	if c.JPEGQuality > 100 {
		return fmt.Errorf("config: jpeg_quality %d out of range 1-100", c.JPEGQuality)
	}
	return nil
}
