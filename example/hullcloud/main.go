// Command hullcloud hulls a point cloud described by a TOML file and writes
// the hull as a Wavefront OBJ.
//
//	hullcloud -config sphere.toml -out sphere.obj
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"github.com/akmonengine/hull"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is the TOML input.
type Config struct {
	// Shape generates Count points: "sphere", "box", "disc" or "points" to
	// use Points as given.
	Shape  string       `toml:"shape"`
	Count  int          `toml:"count"`
	Seed   uint64       `toml:"seed"`
	Points [][3]float64 `toml:"points"`
	Desc   DescConfig   `toml:"desc"`
}

// DescConfig overrides the hull defaults. Zero values keep the default.
type DescConfig struct {
	Polygons        bool    `toml:"polygons"`
	Reverse         bool    `toml:"reverse"`
	SkinWidth       float64 `toml:"skin_width"`
	MaxVertices     int     `toml:"max_vertices"`
	NormalEpsilon   float64 `toml:"normal_epsilon"`
	AreaTestEpsilon float64 `toml:"area_test_epsilon"`
	MaxPlanes       int     `toml:"max_planes"`
	BevelAngle      float64 `toml:"bevel_angle"`
	Workers         int     `toml:"workers"`
}

func loadConfig(filename string) (Config, error) {
	cfg := Config{Shape: "sphere", Count: 500, Seed: 1}
	f, err := os.Open(filename)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decoding %s", filename)
	}
	return cfg, nil
}

func generate(cfg Config) ([]mgl64.Vec3, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	points := make([]mgl64.Vec3, 0, cfg.Count)

	switch cfg.Shape {
	case "points":
		for _, p := range cfg.Points {
			points = append(points, mgl64.Vec3(p))
		}
	case "sphere":
		for range cfg.Count {
			points = append(points, mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Normalize())
		}
	case "box":
		for range cfg.Count {
			points = append(points, mgl64.Vec3{rng.Float64(), rng.Float64(), rng.Float64()})
		}
	case "disc":
		for range cfg.Count {
			r, a := math.Sqrt(rng.Float64()), rng.Float64()*2*math.Pi
			points = append(points, mgl64.Vec3{r * math.Cos(a), r * math.Sin(a), 0})
		}
	default:
		return nil, errors.Errorf("unknown shape %q", cfg.Shape)
	}
	return points, nil
}

func describe(cfg Config, points []mgl64.Vec3, logger *slog.Logger) hull.HullDesc {
	desc := hull.NewHullDesc(hull.QfTriangles, points...)
	desc.Logger = logger
	if cfg.Desc.Polygons {
		desc.ClearHullFlag(hull.QfTriangles)
	}
	if cfg.Desc.Reverse {
		desc.SetHullFlag(hull.QfReverseOrder)
	}
	if cfg.Desc.SkinWidth != 0 {
		desc.SetHullFlag(hull.QfSkinWidth)
		desc.SkinWidth = cfg.Desc.SkinWidth
	}
	if cfg.Desc.MaxVertices != 0 {
		desc.MaxVertices = cfg.Desc.MaxVertices
	}
	if cfg.Desc.NormalEpsilon != 0 {
		desc.NormalEpsilon = cfg.Desc.NormalEpsilon
	}
	if cfg.Desc.MaxPlanes != 0 {
		desc.MaxPlanes = cfg.Desc.MaxPlanes
	}
	if cfg.Desc.BevelAngle != 0 {
		desc.BevelAngle = cfg.Desc.BevelAngle
	}
	if cfg.Desc.Workers != 0 {
		desc.Workers = cfg.Desc.Workers
	}
	desc.AreaTestEpsilon = cfg.Desc.AreaTestEpsilon
	return desc
}

func writeOBJ(w io.Writer, r *hull.HullResult) error {
	if _, err := fmt.Fprintf(w, "# hull: %d vertices, %d faces, %s\n", r.NumOutputVertices, r.NumFaces, r.Status); err != nil {
		return err
	}
	for _, v := range r.Vertices() {
		if _, err := fmt.Fprintf(w, "v %g %g %g\n", v[0], v[1], v[2]); err != nil {
			return err
		}
	}
	for _, f := range r.Faces() {
		if _, err := io.WriteString(w, "f"); err != nil {
			return err
		}
		for _, v := range f {
			// OBJ indices start at 1
			if _, err := fmt.Fprintf(w, " %d", v+1); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func run(configPath, outPath string, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	points, err := generate(cfg)
	if err != nil {
		return err
	}

	result, err := hull.CreateConvexHull(describe(cfg, points, logger))
	if err != nil {
		return errors.Wrapf(err, "status %s", hull.StatusOf(err))
	}
	defer result.Release()
	logger.Info("hull computed", "points", len(points), "vertices", result.NumOutputVertices, "faces", result.NumFaces, "status", result.Status)

	if outPath == "" {
		return writeOBJ(os.Stdout, result)
	}
	return writeFile(outPath, result)
}

// writeFile writes result as OBJ to path. A failed close fails the write.
func writeFile(path string, result *hull.HullResult) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return writeOBJ(out, result)
}

func main() {
	configPath := flag.String("config", "sphere.toml", "TOML description of the point cloud")
	outPath := flag.String("out", "", "OBJ output, stdout when empty")
	verbose := flag.Bool("v", false, "log the hull stages")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*configPath, *outPath, logger); err != nil {
		logger.Error("hullcloud failed", "err", err)
		os.Exit(1)
	}
}
