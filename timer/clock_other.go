//go:build !linux

package timer

import "time"

var boot = time.Now()

type systemClock struct{}

func (systemClock) NowMillis() int64 {
	return time.Since(boot).Milliseconds()
}
