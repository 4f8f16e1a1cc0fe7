// Package draw renders the taxi world with Gio.
package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

func drawRect(gtx layout.Context, x1, y1, x2, y2 float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1, y1))
	path.LineTo(f32.Pt(x2, y1))
	path.LineTo(f32.Pt(x2, y2))
	path.LineTo(f32.Pt(x1, y2))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawSquare(gtx layout.Context, cx, cy, size float32, col color.NRGBA) {
	half := size / 2
	drawRect(gtx, cx-half, cy-half, cx+half, cy+half, col)
}

func drawLine(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if length < 0.1 {
		return
	}

	dx /= length
	dy /= length
	px := -dy * width / 2
	py := dx * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawFilledCircle(gtx layout.Context, cx, cy, radius float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.Move(f32.Pt(cx+radius, cy))

	segments := 16
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		x := cx + radius*float32(math.Cos(angle))
		y := cy + radius*float32(math.Sin(angle))
		path.Line(f32.Pt(x-path.Pos().X, y-path.Pos().Y))
	}
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawRing(gtx layout.Context, cx, cy, radius, width float32, col color.NRGBA) {
	segments := 24
	for i := 0; i < segments; i++ {
		a1 := float64(i) * 2 * math.Pi / float64(segments)
		a2 := float64(i+1) * 2 * math.Pi / float64(segments)
		drawLine(gtx,
			cx+radius*float32(math.Cos(a1)), cy+radius*float32(math.Sin(a1)),
			cx+radius*float32(math.Cos(a2)), cy+radius*float32(math.Sin(a2)),
			width, col)
	}
}
