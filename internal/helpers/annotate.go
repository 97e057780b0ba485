// Package helpers holds image utilities shared by the evidence path.
package helpers

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sentinel-worker-go/internal/models"
)

var (
	boxColor   = color.RGBA{R: 220, G: 40, B: 40, A: 0}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// IsJPEGData checks the JPEG magic bytes
func IsJPEGData(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// AnnotateDetections draws detection boxes and labels onto a JPEG frame and
// returns the re-encoded image in a freshly allocated buffer. On any decode
// or encode failure a copy of the original bytes is returned; evidence must
// never be lost to a drawing error.
func AnnotateDetections(frame []byte, detections []models.Detection) []byte {
	if len(frame) == 0 || len(detections) == 0 {
		return append([]byte(nil), frame...)
	}

	mat, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		log.Debug().Err(err).Msg("Annotation decode failed, keeping raw frame")
		return append([]byte(nil), frame...)
	}
	defer mat.Close()

	width := float64(mat.Cols())
	height := float64(mat.Rows())

	for _, det := range detections {
		rect, ok := bboxToRect(det.BBox, width, height)
		if !ok {
			continue
		}

		gocv.Rectangle(&mat, rect, boxColor, 2)

		caption := fmt.Sprintf("%s %.0f%%", strings.ToLower(det.Label), det.Confidence*100)
		origin := image.Pt(rect.Min.X, rect.Min.Y-6)
		if origin.Y < 12 {
			origin.Y = rect.Min.Y + 14
		}
		gocv.PutText(&mat, caption, origin, gocv.FontHersheySimplex, 0.5, labelColor, 1)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		log.Debug().Err(err).Msg("Annotation encode failed, keeping raw frame")
		return append([]byte(nil), frame...)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out
}

// bboxToRect converts a detector bounding box to pixel coordinates. Boxes may
// arrive normalized (0-1) or already in pixels; values are clamped to the
// frame.
func bboxToRect(bbox []float64, width, height float64) (image.Rectangle, bool) {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return image.Rectangle{}, false
	}

	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]
	if x1 <= 1.0 && y1 <= 1.0 && x2 <= 1.0 && y2 <= 1.0 {
		x1, y1, x2, y2 = x1*width, y1*height, x2*width, y2*height
	}

	rect := image.Rect(
		clampInt(x1, width),
		clampInt(y1, height),
		clampInt(x2, width),
		clampInt(y2, height),
	)
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return image.Rectangle{}, false
	}
	return rect, true
}

func clampInt(v, limit float64) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return int(limit)
	}
	return int(v)
}
