package worker

import "time"

// every returns a channel firing each interval and its stop func. A
// non-positive interval yields a nil channel, which never fires.
func every(interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}
