package viz

// TrailCanvas draws the complete bob path of a run onto a fresh canvas,
// for SVG posters and static plots.
func TrailCanvas(xs, ys []float64, reach float64, w, h int) *Canvas {
	c := NewCanvas(w, h)
	cw, ch := w*2, h*4
	scale := float64(minInt(cw, ch)) / (2.2 * reach)
	cx, cy := cw/2, ch/2

	var prevX, prevY int
	for i := range xs {
		x := cx + int(xs[i]*scale)
		y := cy - int(ys[i]*scale)
		if i == 0 {
			c.Set(x, y)
		} else {
			c.DrawLine(prevX, prevY, x, y)
		}
		prevX, prevY = x, y
	}
	return c
}
