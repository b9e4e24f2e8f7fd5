package detector

import (
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func rrect(cx, cy, w, h, angle float64) utils.RotatedRect {
	return utils.RotatedRect{Center: utils.Point{X: cx, Y: cy}, Width: w, Height: h, Angle: angle}
}

func cand(score float32, r utils.RotatedRect) CandidateBox {
	return CandidateBox{Box: r, Confidence: score}
}

func TestRotatedIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b utils.RotatedRect
		want float64
	}{
		{"identical", rrect(10, 10, 10, 10, 0), rrect(10, 10, 10, 10, 0), 1},
		{"disjoint", rrect(10, 10, 10, 10, 0), rrect(50, 50, 10, 10, 0), 0},
		{"half shifted", rrect(10, 10, 10, 10, 0), rrect(15, 10, 10, 10, 0), 50.0 / 150.0},
		{"contained", rrect(10, 10, 20, 20, 0), rrect(10, 10, 10, 10, 0), 0.25},
		{"square quarter turn", rrect(10, 10, 10, 10, 0), rrect(10, 10, 10, 10, 90), 1},
		{"degenerate", rrect(10, 10, 0, 10, 0), rrect(10, 10, 10, 10, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RotatedIoU(tt.a, tt.b), 1e-3)
		})
	}
}

func TestRotatedIoU_CrossShape(t *testing.T) {
	// a 20x4 bar against the same bar rotated by 90 degrees overlaps in a 4x4 square
	a := rrect(50, 50, 20, 4, 0)
	b := rrect(50, 50, 20, 4, 90)
	assert.InDelta(t, 16.0, RotatedIntersection(a, b), 0.05)
	assert.InDelta(t, 16.0/(80+80-16), RotatedIoU(a, b), 1e-3)
}

func TestRotatedNMS_SuppressesOverlap(t *testing.T) {
	cands := []CandidateBox{
		cand(0.7, rrect(10, 10, 10, 10, 0)),
		cand(0.9, rrect(11, 10, 10, 10, 0)), // IoU with #0 ~0.82
	}
	kept := RotatedNMS(cands, 0.5, 0.4)
	assert.Equal(t, []int{1}, kept)
}

func TestRotatedNMS_KeepsLowOverlap(t *testing.T) {
	cands := []CandidateBox{
		cand(0.7, rrect(10, 10, 10, 10, 0)),
		cand(0.9, rrect(17, 10, 10, 10, 0)), // IoU 30/170
	}
	kept := RotatedNMS(cands, 0.5, 0.4)
	assert.Equal(t, []int{1, 0}, kept)
}

func TestRotatedNMS_StableTies(t *testing.T) {
	cands := []CandidateBox{
		cand(0.8, rrect(100, 100, 10, 10, 0)),
		cand(0.8, rrect(10, 10, 10, 10, 0)),
		cand(0.8, rrect(10.5, 10, 10, 10, 0)),
	}
	kept := RotatedNMS(cands, 0.5, 0.4)
	// equal scores keep decode order, so #1 wins over its twin #2
	assert.Equal(t, []int{0, 1}, kept)
}

func TestRotatedNMS_ScoreCutoff(t *testing.T) {
	cands := []CandidateBox{
		cand(0.5, rrect(10, 10, 10, 10, 0)),
		cand(0.4, rrect(50, 50, 10, 10, 0)),
		cand(0.51, rrect(90, 90, 10, 10, 0)),
	}
	assert.Equal(t, []int{2}, RotatedNMS(cands, 0.5, 0.4))
	assert.Empty(t, RotatedNMS(nil, 0.5, 0.4))
}

func TestRotatedIoU_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genRect := gopter.CombineGens(
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(2, 40),
		gen.Float64Range(2, 40),
		gen.Float64Range(-90, 90),
	).Map(func(v []any) utils.RotatedRect {
		return rrect(v[0].(float64), v[1].(float64), v[2].(float64), v[3].(float64), v[4].(float64))
	})

	properties.Property("IoU is symmetric and within [0,1]", prop.ForAll(
		func(a, b utils.RotatedRect) bool {
			ab, ba := RotatedIoU(a, b), RotatedIoU(b, a)
			return ab >= 0 && ab <= 1+1e-6 && abs(ab-ba) < 1e-3
		},
		genRect, genRect,
	))

	properties.Property("IoU with itself is one", prop.ForAll(
		func(a utils.RotatedRect) bool {
			return abs(RotatedIoU(a, a)-1) < 1e-3
		},
		genRect,
	))

	properties.TestingRun(t)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
