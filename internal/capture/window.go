package capture

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// WindowInfo describes a top-level window in root coordinates
type WindowInfo struct {
	ID     uint32
	Title  string
	Bounds image.Rectangle
}

// FocusedWindow returns the active X11 window so its area can be recorded.
// The bounds are clipped to the root window.
func FocusedWindow() (*WindowInfo, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	root := screen.Root

	win, err := activeWindow(conn, root)
	if err != nil {
		return nil, err
	}

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}
	// Geometry is relative to the parent, which is often a WM frame
	pos, err := xproto.TranslateCoordinates(conn, win, root, 0, 0).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to translate window coordinates: %w", err)
	}

	screenRect := image.Rect(0, 0, int(screen.WidthInPixels), int(screen.HeightInPixels))
	info := &WindowInfo{
		ID:     uint32(win),
		Bounds: clipWindow(int(pos.DstX), int(pos.DstY), int(geom.Width), int(geom.Height), screenRect),
	}
	info.Title = windowTitle(conn, win)

	if info.Bounds.Empty() {
		return nil, fmt.Errorf("window 0x%x is off screen", info.ID)
	}
	return info, nil
}

// activeWindow prefers _NET_ACTIVE_WINDOW and falls back to input focus
func activeWindow(conn *xgb.Conn, root xproto.Window) (xproto.Window, error) {
	if atom, err := internAtom(conn, "_NET_ACTIVE_WINDOW"); err == nil {
		reply, err := xproto.GetProperty(conn, false, root, atom, xproto.AtomWindow, 0, 1).Reply()
		if err == nil {
			if id := decodeWindowID(reply.Value); id != 0 {
				return xproto.Window(id), nil
			}
		}
	}

	focus, err := xproto.GetInputFocus(conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get input focus: %w", err)
	}
	if focus.Focus == xproto.WindowNone || focus.Focus == root {
		return 0, fmt.Errorf("no focused window")
	}
	return focus.Focus, nil
}

func windowTitle(conn *xgb.Conn, win xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := internAtom(conn, name)
		if err != nil {
			continue
		}
		reply, err := xproto.GetProperty(conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
		if err == nil && reply.ValueLen > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

func internAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// decodeWindowID reads a 32-bit window id from a property value
func decodeWindowID(value []byte) uint32 {
	if len(value) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(value)
}

func clipWindow(x, y, w, h int, screen image.Rectangle) image.Rectangle {
	return image.Rect(x, y, x+w, y+h).Intersect(screen)
}
