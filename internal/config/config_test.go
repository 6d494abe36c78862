package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "holoquilt.json", `{
		"settings": "visual.cfg",
		"views_dir": "views",
		"output": "/abs/out.png",
		"mode": "quilt",
		"workers": 3,
		"grid": true
	}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve(Flags{}))

	assert.Equal(t, filepath.Join(dir, "visual.cfg"), cfg.SettingsPath)
	assert.Equal(t, filepath.Join(dir, "views"), cfg.ViewsDir)
	assert.Equal(t, "/abs/out.png", cfg.Output)
	assert.Equal(t, "quilt", cfg.Mode)
	assert.Equal(t, "linear", cfg.Filter)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Grid)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "holoquilt.toml", `
settings = "cal/visual.cfg"
views_dir = "views"
filter = "nearest"
output_width = 1536
output_height = 2048
jpeg_quality = 80
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve(Flags{}))

	assert.Equal(t, filepath.Join(dir, "cal", "visual.cfg"), cfg.SettingsPath)
	assert.Equal(t, "nearest", cfg.Filter)
	assert.Equal(t, 1536, cfg.OutputWidth)
	assert.Equal(t, 2048, cfg.OutputHeight)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.Equal(t, "holo", cfg.Mode)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(writeFile(t, dir, "a.json", `{"setings": "x"}`))
	assert.Error(t, err)
	_, err = Load(writeFile(t, dir, "a.toml", `setings = "x"`))
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestResolveFlagsOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "c.json", `{"settings": "a.cfg", "views_dir": "v", "workers": 2}`))
	require.NoError(t, err)

	require.NoError(t, cfg.Resolve(Flags{
		SettingsPath: "other.cfg",
		Workers:      7,
		Mode:         "quilt",
		AllowPartial: true,
	}))
	// Flag paths are taken as given, not joined with the config dir.
	assert.Equal(t, "other.cfg", cfg.SettingsPath)
	assert.Equal(t, filepath.Join(dir, "v"), cfg.ViewsDir)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "quilt", cfg.Mode)
	assert.True(t, cfg.AllowPartial)
}

func TestResolveDefaultsWithoutFile(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Resolve(Flags{SettingsPath: "s.cfg", ViewsDir: "views"}))
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 512, cfg.PreviewSize)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, "views", cfg.ViewsDir)
}

func TestResolveExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, cfg.Resolve(Flags{SettingsPath: "~/visual.cfg", ViewsDir: "~/views"}))
	assert.Equal(t, filepath.Join(home, "visual.cfg"), cfg.SettingsPath)
	assert.Equal(t, filepath.Join(home, "views"), cfg.ViewsDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
	}{
		{name: "no settings", flags: Flags{ViewsDir: "v"}},
		{name: "no views", flags: Flags{SettingsPath: "s"}},
		{name: "half size", flags: Flags{SettingsPath: "s", ViewsDir: "v", OutputWidth: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			assert.Error(t, cfg.Resolve(tt.flags))
		})
	}
}
