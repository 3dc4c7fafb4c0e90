package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"recipescraper/pkg/scraper"
)

const notificationTitle = "recipescraper"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := strings.NewReplacer("'", "''").Replace
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName('text')
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('%s').Show($toast)
	`, escape(title), escape(message), notificationTitle)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier sends a desktop notification when a run ends
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a new Notifier based on the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier using sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// NotifyRunFinished sends a notification describing the run outcome.
// Unsupported platforms are a no-op.
func (n *Notifier) NotifyRunFinished(s scraper.Summary) error {
	if n.sender == nil {
		return nil
	}
	return n.sender.Send(notificationTitle, RunMessage(s))
}

// RunMessage is the one-line description of a finished run
func RunMessage(s scraper.Summary) string {
	switch {
	case s.Interrupted:
		return fmt.Sprintf("Interrupted: %d fetched, %d left", s.Fetched, s.Remaining())
	case s.Failed > 0:
		return fmt.Sprintf("Done: %d fetched, %d failed", s.Fetched, s.Failed)
	case s.Planned == 0:
		return "Done: everything is up to date"
	default:
		return fmt.Sprintf("Done: %d recipes fetched", s.Fetched+s.Unchanged)
	}
}
