package ui

import (
	"os/exec"
	"runtime"
	"strings"
)

// Notify sends a desktop notification when a long analysis finishes. Fails
// silently if no notifier is installed.
func Notify(title, message string) {
	switch runtime.GOOS {
	case "darwin":
		script := `display notification "` + escapeAppleScript(message) + `" with title "` + escapeAppleScript(title) + `"`
		_ = exec.Command("osascript", "-e", script).Run()
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			_ = exec.Command("notify-send", title, message).Run()
		}
	}
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
