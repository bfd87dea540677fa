// Package notify delivers completion alerts: styled terminal lines, an
// audible chime, or several notifiers at once.
package notify

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fca5a5"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of fmt.Printf.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes notifications as a styled terminal line.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
	bell    bool
}

// NewCLINotifier creates a stdout-based notifier. If printFn is nil,
// fmt.Printf is used. With bell set, the line starts with BEL so the
// terminal can flag it.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc, bell bool) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn, bell: bell}
}

// Notify prints the notification title and body.
func (n *CLINotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.log.Debug("notify %s: %s", note.ID, note.Body)

	prefix := ""
	if n.bell {
		prefix = "\a"
	}
	n.printFn("%s%s  %s", prefix, titleStyle.Render(note.Title), bodyStyle.Render(note.Body))
	return nil
}
