package tree

import (
	"log"
	"os"
)

// debugEnabled gates verbose per-transition logging. Set PONDER_DEBUG to any
// non-empty value to enable it.
var debugEnabled = os.Getenv("PONDER_DEBUG") != ""

// debugLog writes a message when debug logging is enabled.
func debugLog(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	log.Printf("[tree] "+format, args...)
}
