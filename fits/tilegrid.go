package fits

import (
	"fmt"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/format"
)

// hcompressTileRows is the default tile height of Hcompress on 2-D images.
const hcompressTileRows = 16

// tileGrid cuts an N-dimensional image into tiles. Axes and tile sizes are
// ordered NAXIS1 first, so axis 0 is contiguous in memory.
type tileGrid struct {
	axes   []int
	tile   []int
	counts []int // tiles along each axis
	total  int
}

func newTileGrid(axes, tile []int) (tileGrid, error) {
	if len(tile) != len(axes) {
		return tileGrid{}, fmt.Errorf("%w: %d tile dimensions for %d axes", errs.ErrInvalidValue, len(tile), len(axes))
	}

	g := tileGrid{
		axes:   axes,
		tile:   make([]int, len(axes)),
		counts: make([]int, len(axes)),
		total:  1,
	}
	if len(axes) == 0 {
		g.total = 0
	}

	for i, n := range axes {
		t := tile[i]
		if t <= 0 {
			return tileGrid{}, fmt.Errorf("%w: tile dimension %d is %d", errs.ErrInvalidValue, i+1, t)
		}
		g.tile[i] = min(t, max(n, 1))
		g.counts[i] = (n + g.tile[i] - 1) / g.tile[i]
		g.total *= g.counts[i]
	}

	return g, nil
}

// defaultTile returns the tile dimensions used when none are requested.
//
// A tile is one image row; for cubes (NAXIS >= 3) the first two axes form
// the row so that an interleaved colour row is one tile. Hcompress tiles
// cover up to 16 rows of a 2-D image. rows > 0 overrides the row count.
func defaultTile(axes []int, comp format.CompressionType, rows int) []int {
	tile := make([]int, len(axes))
	for i := range tile {
		tile[i] = 1
	}
	if len(axes) == 0 {
		return tile
	}

	tile[0] = max(axes[0], 1)
	rowAxis := 1
	if len(axes) >= 3 {
		tile[1] = max(axes[1], 1)
		rowAxis = 2
	}
	if rowAxis >= len(axes) {
		return tile
	}

	switch {
	case rows > 0:
		tile[rowAxis] = rows
	case len(axes) == 2 && (comp == format.CompressionHcompress || comp == format.CompressionHsmooth):
		tile[rowAxis] = hcompressTileRows
	}
	tile[rowAxis] = min(tile[rowAxis], max(axes[rowAxis], 1))

	return tile
}

// Len returns the number of tiles.
func (g tileGrid) Len() int {
	return g.total
}

// bounds returns the origin and the clipped size of tile t.
func (g tileGrid) bounds(t int) (origin, size []int) {
	origin = make([]int, len(g.axes))
	size = make([]int, len(g.axes))
	for i := range g.axes {
		idx := t % g.counts[i]
		t /= g.counts[i]
		origin[i] = idx * g.tile[i]
		size[i] = min(g.tile[i], g.axes[i]-origin[i])
	}

	return origin, size
}

// shape returns the tile as width (axis 0) by height (all other axes).
func (g tileGrid) shape(t int) (width, height int) {
	_, size := g.bounds(t)
	height = 1
	for _, n := range size[1:] {
		height *= n
	}

	return size[0], height
}

// forEachRun calls fn for every contiguous run of tile t: n samples starting
// at image offset imgOff, which are stored at tileOff inside the tile.
func (g tileGrid) forEachRun(t int, fn func(imgOff, tileOff, n int)) {
	origin, size := g.bounds(t)
	dims := len(g.axes)

	strides := make([]int, dims)
	stride := 1
	for i := range dims {
		strides[i] = stride
		stride *= g.axes[i]
	}

	runs := 1
	for _, n := range size[1:] {
		runs *= n
	}

	idx := make([]int, dims)
	for r := range runs {
		imgOff := origin[0]
		for i := 1; i < dims; i++ {
			imgOff += (origin[i] + idx[i]) * strides[i]
		}
		fn(imgOff, r*size[0], size[0])

		for i := 1; i < dims; i++ {
			idx[i]++
			if idx[i] < size[i] {
				break
			}
			idx[i] = 0
		}
	}
}
