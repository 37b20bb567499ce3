package helpers

import "time"

func IntMillisecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Millisecond
}

// Milliseconds rounded, for "took 12ms" log lines.
func Milliseconds(d time.Duration) int64 {
	return int64((d + time.Millisecond/2) / time.Millisecond)
}

// Timed runs f and reports elapsed wall time.
func Timed(f func()) time.Duration {
	tbegin := time.Now()
	f()
	return time.Since(tbegin)
}
