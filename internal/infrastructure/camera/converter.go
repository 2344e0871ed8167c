package camera

import (
	"image"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"capture-session/internal/application"
	"capture-session/internal/domain"
)

// NewPreviewConverter возвращает преобразователь кадров камеры в кадры превью:
// масштабирование до размера превью и поворот по ориентации.
func NewPreviewConverter(config domain.VideoConfig) application.FrameConverter {
	return func(sample application.Sample) (domain.Frame, bool) {
		if sample.Image == nil || sample.Image.Bounds().Empty() {
			return domain.Frame{}, false
		}

		img := scale(sample.Image, config.PreviewWidth, config.PreviewHeight, config.Orientation)
		img = rotate(img, config.Orientation)

		capturedAt := sample.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = time.Now()
		}
		return domain.Frame{CapturedAt: capturedAt, Image: img}, true
	}
}

// scale приводит изображение к размеру, который после поворота даст width x height
func scale(src image.Image, width, height int, orientation domain.Orientation) image.Image {
	if width <= 0 || height <= 0 {
		return src
	}
	if orientation == domain.OrientationRight || orientation == domain.OrientationLeft {
		width, height = height, width
	}

	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height && bounds.Min == (image.Point{}) {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}

// rotate поворачивает изображение на кратный 90° угол
func rotate(src image.Image, orientation domain.Orientation) image.Image {
	if orientation == domain.OrientationUp {
		return src
	}

	bounds := src.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	minX, minY := float64(bounds.Min.X), float64(bounds.Min.Y)

	var (
		dstRect image.Rectangle
		m       f64.Aff3
	)
	switch orientation {
	case domain.OrientationRight:
		dstRect = image.Rect(0, 0, bounds.Dy(), bounds.Dx())
		m = f64.Aff3{0, -1, h + minY, 1, 0, -minX}
	case domain.OrientationLeft:
		dstRect = image.Rect(0, 0, bounds.Dy(), bounds.Dx())
		m = f64.Aff3{0, 1, -minY, -1, 0, w + minX}
	default:
		dstRect = image.Rect(0, 0, bounds.Dx(), bounds.Dy())
		m = f64.Aff3{-1, 0, w + minX, 0, -1, h + minY}
	}

	dst := image.NewRGBA(dstRect)
	draw.NearestNeighbor.Transform(dst, m, src, bounds, draw.Src, nil)
	return dst
}
