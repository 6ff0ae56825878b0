package ports

import "time"

// Clock supplies the current time so TTL logic stays testable with
// synthetic time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
