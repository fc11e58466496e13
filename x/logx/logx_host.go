//go:build !(rp2040 || rp2350)

package logx

import (
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	out = log.New(os.Stdout, "", log.LstdFlags)

	paint = [...]func(string, ...any) string{
		DebugLevel: color.New(color.FgCyan).SprintfFunc(),
		InfoLevel:  color.New(color.FgGreen).SprintfFunc(),
		WarnLevel:  color.New(color.FgYellow).SprintfFunc(),
		ErrorLevel: color.New(color.FgRed).SprintfFunc(),
	}
)

// SetOutput redirects logging. Colour is disabled unless w is a terminal stream.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(w, "", log.LstdFlags)
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		color.NoColor = true
	}
}

func write(lvl Level, prefix, format string, v []any) {
	out.Print(paint[lvl](prefix+format, v...))
}
