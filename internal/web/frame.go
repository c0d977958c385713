package web

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"strconv"
)

const (
	defaultScale = 4
	maxScale     = 8
)

// handleFrame serves the framebuffer as a PNG, scaled up by ?scale=N. Lit
// pixels are drawn white on black; a panel that is off is drawn dimmed.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	scale := defaultScale
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxScale {
			http.Error(w, "scale must be 1.."+strconv.Itoa(maxScale), http.StatusBadRequest)
			return
		}
		scale = n
	}

	img := renderFrame(s.frame.Snapshot(), scale, s.frame.IsOn())
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("web: encode frame: %v", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func renderFrame(src *image.Gray, scale int, on bool) *image.Gray {
	lit := color.Gray{Y: 0xFF}
	if !on {
		lit = color.Gray{Y: 0x40}
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if src.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					dst.SetGray(x*scale+dx, y*scale+dy, lit)
				}
			}
		}
	}
	return dst
}
