package api

import (
	"net/http"

	"github.com/fogleman/gg"

	"broadphase/internal/broadphase"
)

const (
	gridVizSize = 512 // output image is gridVizSize x gridVizSize
)

// GridSource provides the index occupancy view the heatmap renders.
type GridSource interface {
	CellLoads() ([]broadphase.CellLoad, float64)
	WorldBounds() (w, h float64)
}

// HandleGridViz renders the current grid occupancy as a PNG heatmap.
// Ordinary bins shade from green to red with occupancy; DBVH regions are
// drawn in blue with their 3x3 footprint outlined.
func HandleGridViz(src GridSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loads, cellSize := src.CellLoads()
		worldW, worldH := src.WorldBounds()
		if worldW <= 0 || worldH <= 0 {
			http.Error(w, "world not configured", http.StatusServiceUnavailable)
			return
		}

		scaleX := gridVizSize / worldW
		scaleY := gridVizSize / worldH

		dc := gg.NewContext(gridVizSize, gridVizSize)
		dc.SetRGB(0.08, 0.08, 0.1)
		dc.Clear()

		for _, load := range loads {
			x := float64(load.CX) * cellSize * scaleX
			y := float64(load.CY) * cellSize * scaleY
			cw := cellSize * scaleX
			ch := cellSize * scaleY

			if load.Region {
				// Region footprint: the 3x3 block around the center.
				dc.SetRGBA(0.2, 0.4, 1, 0.5)
				dc.DrawRectangle(x-cw, y-ch, cw*3, ch*3)
				dc.Fill()
				dc.SetRGB(0.4, 0.6, 1)
				dc.SetLineWidth(1.5)
				dc.DrawRectangle(x-cw, y-ch, cw*3, ch*3)
				dc.Stroke()
				continue
			}

			// Heat ramps green -> red as occupancy approaches the density
			// threshold territory.
			heat := float64(load.Count) / 10.0
			if heat > 1 {
				heat = 1
			}
			dc.SetRGBA(heat, 1-heat, 0.15, 0.85)
			dc.DrawRectangle(x, y, cw, ch)
			dc.Fill()
		}

		w.Header().Set("Content-Type", "image/png")
		if err := dc.EncodePNG(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
