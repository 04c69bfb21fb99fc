package ports

import "time"

// Clock abstracts the time source so timeout checks can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
