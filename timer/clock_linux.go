//go:build linux

package timer

import (
	"golang.org/x/sys/unix"
)

type systemClock struct{}

func (systemClock) NowMillis() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(err)
	}

	return ts.Nano() / 1e6
}
