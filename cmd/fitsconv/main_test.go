package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fitsimg/fits"
	"github.com/arloliu/fitsimg/format"
	"github.com/arloliu/fitsimg/fsys"
)

var testNow = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

func putFile(t *testing.T, mem *fsys.MemFS, name string, data []byte) {
	t.Helper()

	f, err := mem.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func grayPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray16(x, y, color.Gray16{Y: uint16(y*w + x)}) //nolint: gosec
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func runCLI(mem *fsys.MemFS, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, mem, testNow, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestRun_ConvertCompressed(t *testing.T) {
	mem := fsys.NewMemFS()
	putFile(t, mem, "frame.png", grayPNG(t, 12, 7))
	putFile(t, mem, "meta.yaml", []byte("camera: cam1\ngain: {value: 10, min: 0, max: 100}\n"))

	code, stdout, stderr := runCLI(mem, "-c", "rice", "-meta", "meta.yaml", "frame.png")
	require.Equal(t, exitOK, code, stderr)
	require.Equal(t, "frame.fits[compress R]\n", stdout)
	require.Contains(t, stderr, "saved compressed image")

	hdus, err := fits.Open(mem, "frame.fits")
	require.NoError(t, err)
	require.Len(t, hdus, 2)

	hdr, err := hdus[1].Header()
	require.NoError(t, err)
	camera, _ := hdr.String("CAMERA")
	require.Equal(t, "cam1", camera)
	gain, _ := hdr.Int("GAIN_MAX")
	require.Equal(t, int64(100), gain)

	data, err := hdus[1].ReadImage()
	require.NoError(t, err)
	require.Equal(t, []int{7, 12}, data.Dimensions)
	samples, ok := data.Samples.([]uint16)
	require.True(t, ok)
	require.Equal(t, uint16(83), samples[83])
}

func TestRun_OutputAndOverwrite(t *testing.T) {
	mem := fsys.NewMemFS()
	putFile(t, mem, "in.png", grayPNG(t, 4, 4))

	code, stdout, _ := runCLI(mem, "-o", "out", "in.png")
	require.Equal(t, exitOK, code)
	require.Equal(t, "out.fits\n", stdout)

	code, _, stderr := runCLI(mem, "-o", "out", "in.png")
	require.Equal(t, exitError, code)
	require.Contains(t, stderr, "conversion failed")

	code, _, _ = runCLI(mem, "-o", "out", "-overwrite", "in.png")
	require.Equal(t, exitOK, code)
}

func TestRun_Inspect(t *testing.T) {
	mem := fsys.NewMemFS()
	putFile(t, mem, "in.png", grayPNG(t, 4, 4))

	code, _, _ := runCLI(mem, "-c", "gzip", "in.png")
	require.Equal(t, exitOK, code)

	code, stdout, _ := runCLI(mem, "-inspect", "in.fits[compress G]")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "HDU 0")
	require.Contains(t, stdout, "HDU 1 \"IMAGE\"")
	require.Contains(t, stdout, "GZIP_1")
	require.Contains(t, stdout, "HIERARCH COMPRESSION_ALGO = 'gzip'")

	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		require.LessOrEqual(t, len(line), fits.CardSize+2)
	}
}

func TestRun_Float(t *testing.T) {
	mem := fsys.NewMemFS()

	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	putFile(t, mem, "rgba.png", buf.Bytes())

	code, _, stderr := runCLI(mem, "-float", "-c", "hcompress", "rgba.png")
	require.Equal(t, exitOK, code, stderr)

	hdus, err := fits.Open(mem, "rgba.fits")
	require.NoError(t, err)

	desc, ok := hdus[1].Description()
	require.True(t, ok)
	require.Equal(t, format.TypeFloat, desc.Type)
	require.Equal(t, []int{2, 3, 4}, desc.Dimensions)

	data, err := hdus[1].ReadImage()
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1, 1, 1}, data.Samples.([]float32)[:4])
}

func TestRun_UsageErrors(t *testing.T) {
	mem := fsys.NewMemFS()

	code, _, _ := runCLI(mem)
	require.Equal(t, exitUsage, code)

	code, _, _ = runCLI(mem, "-o", "x", "a.png", "b.png")
	require.Equal(t, exitUsage, code)

	code, _, stderr := runCLI(mem, "-c", "lz4", "a.png")
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr, "unsupported compression")

	code, _, _ = runCLI(mem, "-tile-rows", "-3", "a.png")
	require.Equal(t, exitUsage, code)
}

func TestRun_Failures(t *testing.T) {
	mem := fsys.NewMemFS()
	putFile(t, mem, "bad.png", []byte("not an image"))
	putFile(t, mem, "good.png", grayPNG(t, 2, 2))

	code, stdout, stderr := runCLI(mem, "bad.png", "good.png", "missing.png")
	require.Equal(t, exitError, code)
	require.Equal(t, "good.fits\n", stdout)
	require.Contains(t, stderr, "bad.png")

	code, _, _ = runCLI(mem, "-meta", "missing.yaml", "good.png")
	require.Equal(t, exitError, code)

	code, _, _ = runCLI(mem, "-inspect", "good.png")
	require.Equal(t, exitError, code)
}
