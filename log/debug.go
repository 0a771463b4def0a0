package log

import (
	hclog "github.com/hashicorp/go-hclog"
)

// EnableTrace drops the level to trace, for boot paths that want scheduling
// events regardless of the TRACE env var.
func EnableTrace() {
	L.SetLevel(hclog.Trace)
}
