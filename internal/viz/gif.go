package viz

import (
	"image"
	"image/color"
	"image/gif"
	"os"

	"github.com/chaoslab/dpsim/internal/frames"
)

// RenderGIF draws every stride-th frame onto the braille canvas and encodes
// the sequence as an animated GIF.
func RenderGIF(path string, fs []frames.Frame, reach float64, fps, stride int) error {
	if stride < 1 {
		stride = 1
	}
	if fps <= 0 {
		fps = 30
	}

	p := NewPlayer(fs, "", reach, fps)
	delay := 100 / fps // GIF delay is in 1/100ths of a second
	if delay < 1 {
		delay = 1
	}

	anim := gif.GIF{LoopCount: 0}
	for i := 0; i < len(fs); i += stride {
		p.idx = i
		p.draw()
		anim.Image = append(anim.Image, rasterize(p.canvas))
		anim.Delay = append(anim.Delay, delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gif.EncodeAll(f, &anim)
}

// rasterize expands each braille dot into a filled block of pixels.
func rasterize(c *Canvas) *image.Paletted {
	charW, charH := 8, 16
	imgW, imgH := c.Width*charW, c.Height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})

	dotW, dotH := charW/2, charH/4
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			r := c.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			baseX, baseY := col*charW, row*charH

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					for py := 0; py < dotH; py++ {
						for px := 0; px < dotW; px++ {
							img.SetColorIndex(baseX+dx*dotW+px, baseY+dy*dotH+py, 1)
						}
					}
				}
			}
		}
	}

	return img
}
