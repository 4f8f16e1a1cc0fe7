// Package widgets provides Gio UI widgets for the replay viewer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/taxi-htn/internal/vis/draw"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/interact"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/state"
)

// Workspace draws the grid world at the current playback frame.
type Workspace struct {
	state  *state.State
	camera *interact.Camera
}

// NewWorkspace creates a new workspace widget.
func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{
		state:  st,
		camera: camera,
	}
}

// Layout renders the workspace.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()

	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	w.handlePointerEvents(gtx)
	w.camera.Fit(w.state.Map.Size, float32(bounds.X), float32(bounds.Y))

	draw.DrawBoard(gtx, w.state.Map, w.camera)
	draw.DrawBeliefWalls(gtx, w.state.Belief, w.state.Map, w.camera)

	ws := w.state.World()
	draw.DrawDestination(gtx, ws.Destination, w.camera)
	draw.DrawTrail(gtx, w.state.History(), w.camera)
	draw.DrawRoute(gtx, w.state.PendingRoute(), w.camera)
	if !ws.InTaxi {
		draw.DrawPassenger(gtx, ws.Passenger, w.camera)
	}

	last, _ := w.state.LastFrame()
	draw.DrawTaxi(gtx, ws, last.NoEffect, w.camera)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		if pe, ok := ev.(pointer.Event); ok {
			w.camera.HandleEvent(pe)
		}
	}
}
