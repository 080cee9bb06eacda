package domain

import "fmt"

// InputEventType enumerates the synthetic input events forwarded to a live browser.
type InputEventType string

const (
	InputClick     InputEventType = "click"
	InputMouseMove InputEventType = "mousemove"
	InputMouseDown InputEventType = "mousedown"
	InputMouseUp   InputEventType = "mouseup"
	InputScroll    InputEventType = "scroll"
	InputKeyDown   InputEventType = "keydown"
)

// InputEvent is a user interaction captured by the viewer and replayed on the page.
type InputEvent struct {
	Type   InputEventType `json:"type"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	DeltaX float64        `json:"deltaX"`
	DeltaY float64        `json:"deltaY"`
	Key    string         `json:"key,omitempty"`
}

// Validate checks the event type and its required fields.
func (e InputEvent) Validate() error {
	switch e.Type {
	case InputClick, InputMouseMove, InputMouseDown, InputMouseUp, InputScroll:
		if e.X < 0 || e.Y < 0 {
			return fmt.Errorf("%w: negative coordinates", ErrInvalidInput)
		}
		return nil
	case InputKeyDown:
		if e.Key == "" {
			return fmt.Errorf("%w: keydown without key", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, e.Type)
	}
}
