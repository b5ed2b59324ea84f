package framestore

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/chai2010/tiff"

	"tiffsignals/internal/models"
)

// decodePages decodes every page of a multi-page TIFF into frames, in file
// order. All pages must share one size.
func decodePages(r io.Reader) ([]models.Frame, error) {
	pages, errs, err := tiff.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no image directories", models.ErrDecode)
	}

	frames := make([]models.Frame, 0, len(pages))
	for page, images := range pages {
		// sub-images beyond the first are thumbnails or reduced resolutions
		if len(images) == 0 {
			return nil, fmt.Errorf("%w: page %d holds no image", models.ErrDecode, page)
		}
		if page < len(errs) && len(errs[page]) > 0 && errs[page][0] != nil {
			return nil, fmt.Errorf("%w: page %d: %v", models.ErrDecode, page, errs[page][0])
		}

		frame := imageToFrame(images[0])
		if len(frames) > 0 && (frame.Rows != frames[0].Rows || frame.Cols != frames[0].Cols) {
			return nil, fmt.Errorf("%w: page %d is %dx%d, first page is %dx%d",
				models.ErrDecode, page, frame.Cols, frame.Rows, frames[0].Cols, frames[0].Rows)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// imageToFrame converts a decoded page to float64 samples.
func imageToFrame(img image.Image) models.Frame {
	bounds := img.Bounds()
	frame := models.NewFrame(bounds.Dy(), bounds.Dx())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < frame.Rows; y++ {
			row := frame.Row(y)
			for x := range row {
				row[x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < frame.Rows; y++ {
			row := frame.Row(y)
			for x := range row {
				row[x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < frame.Rows; y++ {
			row := frame.Row(y)
			for x := range row {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				row[x] = float64(g.Y)
			}
		}
	}
	return frame
}
