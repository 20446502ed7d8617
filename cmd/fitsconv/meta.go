package main

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/fitsimg/fsys"
	"github.com/arloliu/fitsimg/pixbuf"
)

// sidecar is the YAML metadata file accepted by -meta.
//
//	camera: ZWO ASI2600MM Pro
//	timestamp: 2024-03-01T21:04:05.25Z
//	binning: {x: 2, y: 2}
//	pixel_size: {x: 3.76, y: 3.76}
//	exposure: 120s
//	temperature: -10
//	origin: {x: 0, y: 0}
//	offset: 50
//	gain: {value: 100, min: 0, max: 570}
//	extended:
//	  - {name: FILTER, value: Ha}
type sidecar struct {
	Camera      string      `yaml:"camera"`
	Timestamp   time.Time   `yaml:"timestamp"`
	Binning     pairInt     `yaml:"binning"`
	PixelSize   pairFloat   `yaml:"pixel_size"`
	Exposure    string      `yaml:"exposure"`
	Temperature float64     `yaml:"temperature"`
	Origin      pairInt     `yaml:"origin"`
	Offset      int         `yaml:"offset"`
	Gain        gainRange   `yaml:"gain"`
	Extended    []extension `yaml:"extended"`
}

type pairInt struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type pairFloat struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type gainRange struct {
	Value int64 `yaml:"value"`
	Min   int64 `yaml:"min"`
	Max   int64 `yaml:"max"`
}

type extension struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// loadMetadata reads a sidecar file from fs.
func loadMetadata(fs fsys.FS, path string) (*pixbuf.Metadata, error) {
	f, err := fsys.Open(fs, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeMetadata(f)
}

// decodeMetadata maps a YAML sidecar onto pixbuf.Metadata. Unknown fields
// are rejected.
func decodeMetadata(r io.Reader) (*pixbuf.Metadata, error) {
	var sc sidecar

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && err != io.EOF { //nolint: errorlint
		return nil, fmt.Errorf("metadata: %w", err)
	}

	meta := &pixbuf.Metadata{
		CameraName:  sc.Camera,
		Timestamp:   sc.Timestamp,
		BinX:        sc.Binning.X,
		BinY:        sc.Binning.Y,
		PixelSizeX:  sc.PixelSize.X,
		PixelSizeY:  sc.PixelSize.Y,
		Temperature: sc.Temperature,
		OriginX:     sc.Origin.X,
		OriginY:     sc.Origin.Y,
		Offset:      sc.Offset,
		Gain:        sc.Gain.Value,
		GainMin:     sc.Gain.Min,
		GainMax:     sc.Gain.Max,
	}

	if sc.Exposure != "" {
		d, err := time.ParseDuration(sc.Exposure)
		if err != nil {
			return nil, fmt.Errorf("metadata: exposure: %w", err)
		}
		meta.Exposure = d
	}

	for i, e := range sc.Extended {
		if e.Name == "" {
			return nil, fmt.Errorf("metadata: extended record %d has no name", i)
		}
		meta.AddExtended(e.Name, e.Value)
	}

	return meta, nil
}
