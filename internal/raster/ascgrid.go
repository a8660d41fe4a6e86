package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/zonalseries/internal/errors"
)

const (
	// maxCells bounds the grid size a header may declare.
	maxCells = 1 << 30

	initialCellCap = 1 << 16
)

// Grid is a north-up raster with square cells.
// Values are stored row-major starting at the top (northernmost) row.
type Grid struct {
	NCols    int
	NRows    int
	XLL      float64 // x of the lower-left corner
	YLL      float64 // y of the lower-left corner
	CellSize float64

	NoData    float64
	HasNoData bool

	Values []float64
}

// At returns the value of cell (row, col) and whether it holds data.
// NaN and infinite cells never hold data.
func (g *Grid) At(row, col int) (float64, bool) {
	v := g.Values[row*g.NCols+col]
	if g.HasNoData && v == g.NoData {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// CellCenter returns the map coordinates of the centre of cell (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	x = g.XLL + (float64(col)+0.5)*g.CellSize
	y = g.YLL + (float64(g.NRows-row)-0.5)*g.CellSize
	return x, y
}

// Bounds returns the grid extent.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	return g.XLL, g.YLL,
		g.XLL + float64(g.NCols)*g.CellSize,
		g.YLL + float64(g.NRows)*g.CellSize
}

// ReadASCIIGridFile reads an ESRI ASCII grid (.asc) file.
func ReadASCIIGridFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open raster")
	}
	defer f.Close()

	g, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, errors.Wrapf(err, "raster %s", path)
	}
	return g, nil
}

// ReadASCIIGrid decodes an ESRI ASCII grid. The header keys ncols, nrows,
// xllcorner|xllcenter, yllcorner|yllcenter and cellsize are required,
// nodata_value is optional.
func ReadASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	g := &Grid{}
	var xCentered, yCentered bool
	seen := map[string]bool{}

	var pending string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			pending = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("header %s without value: %w", key, errors.ErrUnsupportedRaster)
		}
		val := sc.Text()
		seen[key] = true

		var err error
		switch key {
		case "ncols":
			g.NCols, err = strconv.Atoi(val)
		case "nrows":
			g.NRows, err = strconv.Atoi(val)
		case "xllcorner":
			g.XLL, err = strconv.ParseFloat(val, 64)
		case "xllcenter":
			g.XLL, err = strconv.ParseFloat(val, 64)
			xCentered = true
		case "yllcorner":
			g.YLL, err = strconv.ParseFloat(val, 64)
		case "yllcenter":
			g.YLL, err = strconv.ParseFloat(val, 64)
			yCentered = true
		case "cellsize":
			g.CellSize, err = strconv.ParseFloat(val, 64)
		case "nodata_value":
			g.NoData, err = strconv.ParseFloat(val, 64)
			g.HasNoData = true
		}
		if err != nil {
			return nil, fmt.Errorf("header %s=%q: %w", key, val, errors.Join(errors.ErrUnsupportedRaster, err))
		}
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[k] {
			return nil, fmt.Errorf("missing header %s: %w", k, errors.ErrUnsupportedRaster)
		}
	}
	if g.NCols <= 0 || g.NRows <= 0 || g.CellSize <= 0 {
		return nil, fmt.Errorf("non-positive grid dimensions: %w", errors.ErrUnsupportedRaster)
	}
	if xCentered {
		g.XLL -= g.CellSize / 2
	}
	if yCentered {
		g.YLL -= g.CellSize / 2
	}

	if g.NCols > maxCells/g.NRows {
		return nil, fmt.Errorf("grid %dx%d exceeds %d cells: %w", g.NCols, g.NRows, maxCells, errors.ErrUnsupportedRaster)
	}
	n := g.NCols * g.NRows
	g.Values = make([]float64, 0, min(n, initialCellCap))

	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("cell %d: %w", len(g.Values), errors.Join(errors.ErrUnsupportedRaster, err))
		}
		g.Values = append(g.Values, v)
		return nil
	}

	if pending != "" {
		if err := parse(pending); err != nil {
			return nil, err
		}
	}
	for len(g.Values) < n && sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(g.Values) != n {
		return nil, fmt.Errorf("expected %d cells, got %d: %w", n, len(g.Values), errors.ErrUnsupportedRaster)
	}

	return g, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}
