//go:build rp2040 || rp2350

package logx

import (
	"fmt"
	"io"
)

// out is nil until SetOutput; lines then go to the runtime console.
var out io.Writer

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func write(_ Level, prefix, format string, v []any) {
	line := prefix + fmt.Sprintf(format, v...)
	if out == nil {
		println(line)
		return
	}
	_, _ = io.WriteString(out, line+"\n")
}
