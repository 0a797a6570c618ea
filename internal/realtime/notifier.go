package realtime

import (
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/joltcab/console/internal/model"
)

// TerminalNotifier raises desktop notifications through the terminal's
// OSC 777 escape, which most modern emulators forward to the OS.
type TerminalNotifier struct {
	out     *termenv.Output
	enabled bool
}

// NewTerminalNotifier writes notifications to w when enabled is set.
func NewTerminalNotifier(w io.Writer, enabled bool) *TerminalNotifier {
	return &TerminalNotifier{
		out:     termenv.NewOutput(w),
		enabled: enabled,
	}
}

// Permitted reports whether desktop notifications are switched on.
func (t *TerminalNotifier) Permitted() bool {
	return t != nil && t.enabled
}

// Notify emits one notification.
func (t *TerminalNotifier) Notify(n model.Notification) error {
	title := oscField(n.Title)
	if title == "" {
		title = "JoltCab"
	}
	t.out.Notify(title, oscField(n.Message))
	return nil
}

// oscField strips control characters and the field separator so backend
// text cannot end the escape sequence early.
func oscField(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(strings.ReplaceAll(s, ";", ","))
}
