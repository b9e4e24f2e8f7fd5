package detector

import (
	"cmp"
	"math"
	"slices"

	"github.com/MeKo-Tech/eastocr/internal/utils"
	clipper "github.com/ctessum/go.clipper"
)

// clipperScale maps float coordinates onto clipper's integer grid.
const clipperScale = 1024

func toClipperPath(r utils.RotatedRect) clipper.Path {
	pts := r.Points()
	path := make(clipper.Path, 0, len(pts))
	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * clipperScale)),
			Y: clipper.CInt(math.Round(p.Y * clipperScale)),
		})
	}
	return path
}

func pathArea(path clipper.Path) float64 {
	pts := make([]utils.Point, len(path))
	for i, p := range path {
		pts[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return utils.PolygonArea(pts) / (clipperScale * clipperScale)
}

// RotatedIntersection returns the overlap area of two rotated rectangles.
func RotatedIntersection(a, b utils.RotatedRect) float64 {
	c := clipper.NewClipper(0)
	c.AddPath(toClipperPath(a), clipper.PtSubject, true)
	c.AddPath(toClipperPath(b), clipper.PtClip, true)
	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return 0
	}
	var area float64
	for _, p := range solution {
		area += pathArea(p)
	}
	return area
}

// RotatedIoU returns the intersection over union of two rotated rectangles.
func RotatedIoU(a, b utils.RotatedRect) float64 {
	areaA, areaB := a.Area(), b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	inter := RotatedIntersection(a, b)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// RotatedNMS performs greedy non-maximum suppression and returns the indices
// of the kept candidates in selection order. Only candidates scoring strictly
// above scoreThresh are considered. Equal scores keep their input order. A
// candidate is dropped when its IoU with an already kept box exceeds
// iouThresh.
func RotatedNMS(cands []CandidateBox, scoreThresh float32, iouThresh float64) []int {
	order := make([]int, 0, len(cands))
	for i, c := range cands {
		if c.Confidence > scoreThresh {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(cands[b].Confidence, cands[a].Confidence)
	})

	kept := make([]int, 0, len(order))
	for _, idx := range order {
		keep := true
		for _, k := range kept {
			if RotatedIoU(cands[idx].Box, cands[k].Box) > iouThresh {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, idx)
		}
	}
	return kept
}
