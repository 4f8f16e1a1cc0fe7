// Package interact handles pan and zoom over the taxi grid.
package interact

import (
	"math"

	"gioui.org/io/pointer"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

const (
	minZoom = 10
	maxZoom = 400
)

// Camera maps grid coordinates to screen pixels. World units are cells:
// the cell (r, c) covers [c, c+1) x [r, r+1).
type Camera struct {
	OffsetX float32 // Pan offset in screen pixels
	OffsetY float32
	Zoom    float32 // Pixels per cell

	fitted   bool
	dragging bool
	lastX    float32
	lastY    float32
}

// NewCamera creates a camera that fits the grid on first layout.
func NewCamera() *Camera {
	return &Camera{Zoom: 80}
}

// Reset refits the grid on the next layout.
func (c *Camera) Reset() {
	c.fitted = false
}

// Fit fits a size x size grid into the screen unless the user has already
// moved the camera.
func (c *Camera) Fit(size int, screenWidth, screenHeight float32) {
	if c.fitted {
		return
	}
	c.FitBounds(0, 0, float64(size), float64(size), screenWidth, screenHeight, 40)
	c.fitted = true
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(worldX, worldY float64) (screenX, screenY float32) {
	screenX = float32(worldX)*c.Zoom + c.OffsetX
	screenY = float32(worldY)*c.Zoom + c.OffsetY
	return
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(screenX, screenY float32) (worldX, worldY float64) {
	worldX = float64((screenX - c.OffsetX) / c.Zoom)
	worldY = float64((screenY - c.OffsetY) / c.Zoom)
	return
}

// CellCenter returns the screen position of the center of p.
func (c *Camera) CellCenter(p core.Position) (x, y float32) {
	return c.WorldToScreen(float64(p.Col)+0.5, float64(p.Row)+0.5)
}

// CellAt returns the cell under a screen point.
func (c *Camera) CellAt(screenX, screenY float32) core.Position {
	wx, wy := c.ScreenToWorld(screenX, screenY)
	return core.Pos(int(math.Floor(wy)), int(math.Floor(wx)))
}

// HandleEvent pans with the secondary button and zooms with the wheel.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		if ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary) {
			c.dragging = true
		}
		c.lastX = ev.Position.X
		c.lastY = ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.OffsetX += ev.Position.X - c.lastX
			c.OffsetY += ev.Position.Y - c.lastY
			c.fitted = true
		}
		c.lastX = ev.Position.X
		c.lastY = ev.Position.Y

	case pointer.Release:
		c.dragging = false

	case pointer.Scroll:
		if ev.Scroll.Y == 0 {
			return
		}
		factor := float32(1.1)
		if ev.Scroll.Y > 0 {
			factor = 1 / factor
		}
		c.ZoomBy(factor, ev.Position.X, ev.Position.Y)
		c.fitted = true
	}
}

// ZoomBy zooms by a factor, keeping the world point under the center fixed.
func (c *Camera) ZoomBy(factor float32, centerX, centerY float32) {
	worldX, worldY := c.ScreenToWorld(centerX, centerY)

	c.Zoom = clampZoom(c.Zoom * factor)

	newScreenX, newScreenY := c.WorldToScreen(worldX, worldY)
	c.OffsetX += centerX - newScreenX
	c.OffsetY += centerY - newScreenY
}

// CenterOn centers the camera on a world position.
func (c *Camera) CenterOn(worldX, worldY float64, screenWidth, screenHeight float32) {
	c.OffsetX = screenWidth/2 - float32(worldX)*c.Zoom
	c.OffsetY = screenHeight/2 - float32(worldY)*c.Zoom
}

// FitBounds adjusts camera to fit the given world bounds.
func (c *Camera) FitBounds(minX, minY, maxX, maxY float64, screenWidth, screenHeight float32, margin float32) {
	worldW := maxX - minX
	worldH := maxY - minY
	if worldW <= 0 || worldH <= 0 {
		return
	}

	zoomX := (screenWidth - 2*margin) / float32(worldW)
	zoomY := (screenHeight - 2*margin) / float32(worldH)
	c.Zoom = clampZoom(min(zoomX, zoomY))

	c.CenterOn((minX+maxX)/2, (minY+maxY)/2, screenWidth, screenHeight)
}

func clampZoom(z float32) float32 {
	return max(minZoom, min(z, maxZoom))
}
