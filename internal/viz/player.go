// Package viz renders a finished trajectory in the terminal. The player
// only replays precomputed frames; it never advances the simulation itself.
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/chaoslab/dpsim/internal/frames"
)

const (
	width  = 64
	height = 24
)

type TickMsg time.Time

// Player is a bubbletea model that plays back a frame sequence with a bob
// trail and an energy sparkline.
type Player struct {
	frames   []frames.Frame
	title    string
	reach    float64 // L1 + L2, world-to-screen scale
	fps      int
	idx      int
	playing  bool
	canvas   *Canvas
	trailLen int
}

func NewPlayer(fs []frames.Frame, title string, reach float64, fps int) Player {
	if fps <= 0 {
		fps = 30
	}
	return Player{
		frames:   fs,
		title:    title,
		reach:    reach,
		fps:      fps,
		playing:  true,
		canvas:   NewCanvas(width, height),
		trailLen: frames.DefaultTrailLen,
	}
}

func (p Player) Init() tea.Cmd {
	return p.tick()
}

func (p Player) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(p.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (p Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return p, tea.Quit
		case " ":
			p.playing = !p.playing
		case "r":
			p.idx = 0
		case "[":
			p.playing = false
			p.idx = clamp(p.idx-1, 0, len(p.frames)-1)
		case "]":
			p.playing = false
			p.idx = clamp(p.idx+1, 0, len(p.frames)-1)
		}
	case TickMsg:
		if p.playing && len(p.frames) > 0 {
			p.idx++
			if p.idx >= len(p.frames) {
				p.idx = 0 // loop
			}
		}
		return p, p.tick()
	}
	return p, nil
}

// project maps world coordinates (pivot at origin, y up) to sub-pixel
// canvas coordinates.
func (p *Player) project(wx, wy float64) (int, int) {
	cw, ch := width*2, height*4
	scale := float64(minInt(cw, ch)) / (2.2 * p.reach)
	cx, cy := cw/2, ch/2
	return cx + int(wx*scale), cy - int(wy*scale)
}

func (p *Player) draw() {
	p.canvas.Clear()
	if len(p.frames) == 0 {
		return
	}

	start := p.idx - p.trailLen
	if start < 0 {
		start = 0
	}
	for i := start; i <= p.idx; i++ {
		f := p.frames[i]
		x, y := p.project(f.X2, f.Y2)
		p.canvas.Set(x, y)
	}

	f := p.frames[p.idx]
	px, py := p.project(0, 0)
	j1x, j1y := p.project(f.X1, f.Y1)
	b2x, b2y := p.project(f.X2, f.Y2)

	p.canvas.Set(px, py)
	p.canvas.DrawLine(px, py, j1x, j1y)
	p.canvas.FillDot(j1x, j1y)
	p.canvas.DrawLine(j1x, j1y, b2x, b2y)
	p.canvas.FillDot(b2x, b2y)
}

func (p Player) View() string {
	p.draw()
	canvasView := canvasStyle.Render(p.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(p.title)) + "\n")

	status := "PLAYING"
	if !p.playing {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(p.frames) > 1 {
		lo := maxInt(0, p.idx-200)
		hist := make([]float64, 0, p.idx-lo+1)
		for i := lo; i <= p.idx; i++ {
			hist = append(hist, p.frames[i].Energy)
		}
		if len(hist) > 1 {
			chart := asciigraph.Plot(hist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
			s.WriteString(graphStyle.Render(chart) + "\n\n")
		}
	}

	if len(p.frames) > 0 {
		f := p.frames[p.idx]
		s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", f.T)) + "\n")
		s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f J", f.Energy)) + "\n")
		s.WriteString(labelStyle.Render("Bob") + valueStyle.Render(fmt.Sprintf("(%.2f, %.2f)", f.X2, f.Y2)) + "\n")
		s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%d / %d", p.idx+1, len(p.frames))) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Restart Q:Quit\n[ ]:Step frame"))

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Reach returns the full extension of the pendulum for scaling, guarding
// against degenerate zero-length frames.
func Reach(l1, l2 float64) float64 {
	r := l1 + l2
	if r <= 0 || math.IsNaN(r) {
		return 1
	}
	return r
}
