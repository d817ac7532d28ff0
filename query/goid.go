package query

import (
	"runtime"
	"strconv"
	"strings"
)

// goid returns the calling goroutine's id, parsed from the first line of its
// stack header ("goroutine N [running]:"). The runtime offers no public
// accessor for this; the header format has been stable across Go releases.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.ParseInt(s[:i], 10, 64); err == nil {
			return id
		}
	}
	return -1
}
