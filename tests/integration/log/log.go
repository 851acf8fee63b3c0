//go:build integration

package log

import (
	"fmt"
	"os"
)

// Status prints a setup/progress message for immediate display while the
// integration suite runs.
func Status(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format+"\n", args...)
}
