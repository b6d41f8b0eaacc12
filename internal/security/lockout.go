package security

import "time"

// LockoutPolicy throttles credential checks for a (username, address) pair
// once it has accumulated MaxFailures consecutive failures.
type LockoutPolicy struct {
	MaxFailures int
	Base        time.Duration
	Max         time.Duration
}

// Wait is the delay required after the most recent failure:
// Base * 2^(failures-MaxFailures), capped at Max. Zero below the threshold.
func (p LockoutPolicy) Wait(failures int) time.Duration {
	if p.MaxFailures <= 0 || failures < p.MaxFailures {
		return 0
	}

	ceiling := p.Max
	if ceiling <= 0 {
		ceiling = 24 * time.Hour
	}

	wait := p.Base
	for i := p.MaxFailures; i < failures && wait < ceiling; i++ {
		wait *= 2
	}
	if wait > ceiling {
		return ceiling
	}
	return wait
}

// LockedUntil reports when the pair may try again; the zero time means now.
func (p LockoutPolicy) LockedUntil(failures int, lastFailure time.Time) time.Time {
	wait := p.Wait(failures)
	if wait == 0 || lastFailure.IsZero() {
		return time.Time{}
	}
	return lastFailure.Add(wait)
}
