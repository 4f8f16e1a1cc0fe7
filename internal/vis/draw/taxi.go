package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/interact"
)

var (
	ColorCell       = color.NRGBA{R: 45, G: 50, B: 56, A: 255}
	ColorGridLine   = color.NRGBA{R: 70, G: 76, B: 84, A: 255}
	ColorWall       = color.NRGBA{R: 230, G: 230, B: 235, A: 255}
	ColorBeliefWall = color.NRGBA{R: 255, G: 150, B: 60, A: 200}
	ColorTaxi       = color.NRGBA{R: 250, G: 210, B: 60, A: 255}
	ColorTaxiFull   = color.NRGBA{R: 120, G: 220, B: 120, A: 255}
	ColorNoEffect   = color.NRGBA{R: 255, G: 80, B: 80, A: 255}
	ColorPassenger  = color.NRGBA{R: 100, G: 200, B: 255, A: 255}
	ColorTrail      = color.NRGBA{R: 250, G: 210, B: 60, A: 255}
	ColorRoute      = color.NRGBA{R: 100, G: 200, B: 255, A: 160}
)

var landmarkColors = [core.NumLandmarks]color.NRGBA{
	core.Red:    {R: 200, G: 70, B: 70, A: 255},
	core.Green:  {R: 70, G: 180, B: 90, A: 255},
	core.Yellow: {R: 210, G: 190, B: 60, A: 255},
	core.Blue:   {R: 70, G: 110, B: 210, A: 255},
}

// LandmarkColor returns the display color of a landmark.
func LandmarkColor(l core.Landmark) color.NRGBA {
	return landmarkColors[l]
}

// WallSegment returns the cell boundary a wall edge lies on, in world
// units. ok is false for edges between cells that are not adjacent.
func WallSegment(e core.Edge) (x1, y1, x2, y2 float64, ok bool) {
	a, b := e.From, e.To
	switch {
	case a.Row == b.Row && (b.Col == a.Col+1 || a.Col == b.Col+1):
		x := float64(max(a.Col, b.Col))
		return x, float64(a.Row), x, float64(a.Row + 1), true
	case a.Col == b.Col && (b.Row == a.Row+1 || a.Row == b.Row+1):
		y := float64(max(a.Row, b.Row))
		return float64(a.Col), y, float64(a.Col + 1), y, true
	}
	return 0, 0, 0, 0, false
}

// DrawBoard draws the cells, landmarks, border and walls of g.
func DrawBoard(gtx layout.Context, g *core.Grid, camera *interact.Camera) {
	x0, y0 := camera.WorldToScreen(0, 0)
	x1, y1 := camera.WorldToScreen(float64(g.Size), float64(g.Size))
	drawRect(gtx, x0, y0, x1, y1, ColorCell)

	for l, p := range core.Landmarks {
		col := landmarkColors[l]
		col.A = 90
		cx0, cy0 := camera.WorldToScreen(float64(p.Col), float64(p.Row))
		cx1, cy1 := camera.WorldToScreen(float64(p.Col+1), float64(p.Row+1))
		drawRect(gtx, cx0, cy0, cx1, cy1, col)
	}

	thin := max(1, camera.Zoom/60)
	for i := 1; i < g.Size; i++ {
		lx, _ := camera.WorldToScreen(float64(i), 0)
		_, ly := camera.WorldToScreen(0, float64(i))
		drawLine(gtx, lx, y0, lx, y1, thin, ColorGridLine)
		drawLine(gtx, x0, ly, x1, ly, thin, ColorGridLine)
	}

	thick := max(2, camera.Zoom/12)
	drawLine(gtx, x0, y0, x1, y0, thick, ColorWall)
	drawLine(gtx, x1, y0, x1, y1, thick, ColorWall)
	drawLine(gtx, x1, y1, x0, y1, thick, ColorWall)
	drawLine(gtx, x0, y1, x0, y0, thick, ColorWall)
	drawWalls(gtx, g.Walls(), nil, camera, thick, ColorWall)
}

// DrawBeliefWalls draws the walls the planner assumed that the real map
// does not have.
func DrawBeliefWalls(gtx layout.Context, belief, world *core.Grid, camera *interact.Camera) {
	if belief == nil || belief == world {
		return
	}
	drawWalls(gtx, belief.Walls(), world.Walls(), camera, max(2, camera.Zoom/20), ColorBeliefWall)
}

func drawWalls(gtx layout.Context, walls, except core.WallSet, camera *interact.Camera, width float32, col color.NRGBA) {
	type segment struct{ x1, y1, x2, y2 float64 }
	seen := map[segment]bool{}
	for _, e := range walls.Edges() {
		if except != nil && except.Blocks(e.From, e.To) {
			continue
		}
		x1, y1, x2, y2, ok := WallSegment(e)
		if !ok || seen[segment{x1, y1, x2, y2}] {
			continue
		}
		seen[segment{x1, y1, x2, y2}] = true
		sx1, sy1 := camera.WorldToScreen(x1, y1)
		sx2, sy2 := camera.WorldToScreen(x2, y2)
		drawLine(gtx, sx1, sy1, sx2, sy2, width, col)
	}
}

// DrawTrail draws the cells the taxi has visited, fading toward the start.
func DrawTrail(gtx layout.Context, history []core.Position, camera *interact.Camera) {
	n := len(history)
	for i := 0; i < n-1; i++ {
		col := ColorTrail
		col.A = uint8(40 + float64(i+1)/float64(n)*140)
		x1, y1 := camera.CellCenter(history[i])
		x2, y2 := camera.CellCenter(history[i+1])
		drawLine(gtx, x1, y1, x2, y2, camera.Zoom/10, col)
	}
}

// DrawRoute draws the route the queued plan would take.
func DrawRoute(gtx layout.Context, route []core.Position, camera *interact.Camera) {
	for i := 0; i < len(route)-1; i++ {
		x1, y1 := camera.CellCenter(route[i])
		x2, y2 := camera.CellCenter(route[i+1])
		drawLine(gtx, x1, y1, x2, y2, camera.Zoom/16, ColorRoute)
	}
	if len(route) > 1 {
		x, y := camera.CellCenter(route[len(route)-1])
		drawFilledCircle(gtx, x, y, camera.Zoom/10, ColorRoute)
	}
}

// DrawDestination rings the destination cell in its landmark color.
func DrawDestination(gtx layout.Context, dest core.Position, camera *interact.Camera) {
	l, ok := core.LandmarkAt(dest)
	if !ok {
		return
	}
	x, y := camera.CellCenter(dest)
	drawRing(gtx, x, y, camera.Zoom*0.4, camera.Zoom/14, landmarkColors[l])
}

// DrawPassenger draws a waiting passenger.
func DrawPassenger(gtx layout.Context, p core.Position, camera *interact.Camera) {
	if p == core.NoPosition {
		return
	}
	x, y := camera.CellCenter(p)
	drawFilledCircle(gtx, x, y-camera.Zoom*0.22, camera.Zoom*0.1, ColorPassenger)
	drawLine(gtx, x, y-camera.Zoom*0.12, x, y+camera.Zoom*0.12, camera.Zoom/14, ColorPassenger)
}

// DrawTaxi draws the taxi, green with a passenger aboard and outlined in
// red after an action that had no effect.
func DrawTaxi(gtx layout.Context, ws core.WorldState, noEffect bool, camera *interact.Camera) {
	if ws.Taxi == core.NoPosition {
		return
	}
	x, y := camera.CellCenter(ws.Taxi)
	size := camera.Zoom * 0.5
	if noEffect {
		drawSquare(gtx, x, y, size+camera.Zoom/8, ColorNoEffect)
	}
	col := ColorTaxi
	if ws.InTaxi {
		col = ColorTaxiFull
	}
	drawSquare(gtx, x, y, size, col)
}
