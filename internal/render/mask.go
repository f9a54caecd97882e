// Package render draws land masks and search results as WebP, SVG and GeoJSON.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/landmask"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

// Palette indices of a mask image.
const (
	Unknown uint8 = iota
	Water
	Land
)

// MaskPalette colors unknown cells transparent, water blue and land sand.
var MaskPalette = color.Palette{
	color.NRGBA{},
	color.NRGBA{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff},
	color.NRGBA{R: 0xd9, G: 0xc2, B: 0x8f, A: 0xff},
}

// MaskImage draws the stored mask of grid at step, one pixel per cell with
// row 0 (north) at the top. Cells never classified stay Unknown.
func MaskImage(ctx context.Context, store landmask.Store, step float64, grid geo.Grid) (*image.Paletted, error) {
	rows, cols := grid.Rows(step), grid.Cols(step)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("grid %+v is empty at step %v", grid, step)
	}

	img := image.NewPaletted(image.Rect(0, 0, cols, rows), MaskPalette)

	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := store.LoadRow(ctx, step, geo.FixedDegrees(grid.Lat(i, step)))
		if errors.Is(err, landmask.ErrRowNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		for j := 0; j < cols; j++ {
			land, ok := cells[geo.FixedDegrees(grid.Lon(j, step))]
			switch {
			case !ok:
			case land:
				img.SetColorIndex(j, i, Land)
			default:
				img.SetColorIndex(j, i, Water)
			}
		}
	}

	return img, nil
}

// WriteWebP encodes img as lossless WebP. A positive width different from
// the image width rescales it with nearest neighbour sampling, keeping the
// aspect ratio.
func WriteWebP(w io.Writer, img image.Image, width int) error {
	src := img
	b := img.Bounds()

	if width > 0 && width != b.Dx() {
		height := b.Dy() * width / b.Dx()
		if height < 1 {
			height = 1
		}

		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		src = dst
	}

	return webp.Encode(w, src, &webp.Options{Lossless: true})
}
