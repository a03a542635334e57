// Package activity maintains the bounded, newest-first journal of mutations.
package activity

import "github.com/bubelovv/team-tracker/internal/domain"

// Capacity is the number of records kept; older ones are dropped.
const Capacity = 50

// Prepend puts rec at the head of log and truncates to Capacity. The returned
// slice never aliases log.
func Prepend(log []domain.Activity, rec domain.Activity) []domain.Activity {
	size := len(log) + 1
	if size > Capacity {
		size = Capacity
	}
	out := make([]domain.Activity, 0, size)
	out = append(out, rec)
	for _, existing := range log {
		if len(out) == Capacity {
			break
		}
		out = append(out, existing)
	}
	return out
}

// Recent returns up to n records, newest first. n <= 0 returns the whole log.
func Recent(log []domain.Activity, n int) []domain.Activity {
	if n <= 0 || n > len(log) {
		n = len(log)
	}
	return append([]domain.Activity{}, log[:n]...)
}
