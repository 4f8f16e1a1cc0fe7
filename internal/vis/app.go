// Package vis implements a Gio-based replay viewer for recorded taxi
// episodes.
package vis

import (
	"image/color"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/interact"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/state"
	"github.com/elektrokombinacija/taxi-htn/internal/vis/widgets"
)

// App is the replay viewer.
type App struct {
	state     *state.State
	theme     *material.Theme
	workspace *widgets.Workspace
	timeline  *widgets.Timeline
	toolbar   *widgets.Toolbar
	camera    *interact.Camera
}

// NewApp creates a viewer for trace on the world map. belief is the wall
// model the planner used; nil means the real map.
func NewApp(trace acting.Trace, world, belief *core.Grid) *App {
	st := state.NewState(trace, world, belief)
	camera := interact.NewCamera()

	return &App{
		state:     st,
		theme:     material.NewTheme(),
		workspace: widgets.NewWorkspace(st, camera),
		timeline:  widgets.NewTimeline(st),
		toolbar:   widgets.NewToolbar(st),
		camera:    camera,
	}
}

// State returns the viewer state.
func (a *App) State() *state.State {
	return a.state
}

// Run starts the application event loop.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.HandleKey(ke.Name)
				}
			}
			event.Op(gtx.Ops, tag)

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.state.Playback.Playing {
				a.state.Playback.Advance()
				w.Invalidate()
			}
		}
	}
}

// HandleKey applies a keyboard shortcut.
func (a *App) HandleKey(name key.Name) {
	p := a.state.Playback
	switch name {
	case key.NameSpace:
		p.TogglePlay()
	case key.NameLeftArrow:
		p.StepBack()
	case key.NameRightArrow:
		p.StepForward()
	case key.NameHome:
		p.Reset()
	case key.NameEnd:
		p.Pause()
		p.SetTime(p.MaxTime)
	case "+", "=":
		p.SetSpeed(p.Speed * 2)
	case "-":
		p.SetSpeed(p.Speed / 2)
	case "R":
		a.camera.Reset()
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return a.workspace.Layout(gtx, a.theme)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}
