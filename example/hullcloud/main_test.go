package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akmonengine/hull"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloud.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
shape = "points"
points = [[0.0, 0.0, 0.0], [1.0, 0.0, 0.0], [0.0, 1.0, 0.0], [0.0, 0.0, 1.0]]

[desc]
polygons = true
max_vertices = 32
`))
	require.NoError(t, err)
	assert.Equal(t, "points", cfg.Shape)
	assert.Len(t, cfg.Points, 4)
	assert.True(t, cfg.Desc.Polygons)
	assert.Equal(t, 32, cfg.Desc.MaxVertices)
	assert.Equal(t, uint64(1), cfg.Seed, "defaults survive")

	_, err = loadConfig(writeConfig(t, `colour = "red"`))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestGenerate(t *testing.T) {
	for _, shape := range []string{"sphere", "box", "disc"} {
		points, err := generate(Config{Shape: shape, Count: 50, Seed: 3})
		require.NoError(t, err)
		assert.Len(t, points, 50, shape)
	}

	_, err := generate(Config{Shape: "torus"})
	assert.Error(t, err)
}

func TestWriteOBJ(t *testing.T) {
	cfg := Config{Shape: "points", Points: [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	}}
	cfg.Desc.Polygons = true
	points, err := generate(cfg)
	require.NoError(t, err)

	r, err := hull.CreateConvexHull(describe(cfg, points, slog.Default()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeOBJ(&buf, r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var vertices, faces int
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "f "):
			faces++
			assert.Len(t, strings.Fields(line), 5, "quad face: %s", line)
		}
	}
	assert.Equal(t, 8, vertices)
	assert.Equal(t, 6, faces)
}

func TestRunWritesFile(t *testing.T) {
	config := writeConfig(t, `
shape = "box"
count = 40
`)
	out := filepath.Join(t.TempDir(), "hull.obj")
	require.NoError(t, run(config, out, slog.Default()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\nf ")

	assert.Error(t, run(config, filepath.Join(t.TempDir(), "missing", "hull.obj"), slog.Default()))
}
