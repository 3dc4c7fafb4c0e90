package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// ASCII logo for the application
const ASCIILogo = `
    ╭────────────────────────────────────────╮
    │                                        │
    │       R E C I P E S C R A P E R        │
    │       cookidoo recipe downloader       │
    │                                        │
    ╰────────────────────────────────────────╯
`

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(ShouldColorize(os.Stdout))
}

// ShouldColorize reports whether w is a terminal that can show colors
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetColor turns colored output on or off
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

// ColorEnabled reports whether colored output is on
func ColorEnabled() bool {
	return colorEnabled.Load()
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes while
// colors are enabled
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(os.Stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}
