package delivery

import "time"

// MaxAttempts is the number of attempts a message gets, the first included.
const MaxAttempts = 4

// backoffWindows are the [min, max] retry delays in seconds after attempt n.
var backoffWindows = [MaxAttempts][2]int64{
	{5, 10},
	{30, 40},
	{60, 79},
	{160, 400},
}

// Backoff returns a random delay within the window for attempt. randN must
// return a value in [0, n).
func Backoff(attempt int, randN func(n int64) int64) time.Duration {
	w := backoffWindows[min(max(attempt, 1), MaxAttempts)-1]
	return time.Duration(w[0]+randN(w[1]-w[0]+1)) * time.Second
}

// maxJitter spreads retries of messages that failed together.
const maxJitter = 3 * time.Second

func jitter(randN func(n int64) int64) time.Duration {
	return time.Duration(randN(int64(maxJitter/time.Millisecond)+1)) * time.Millisecond
}
