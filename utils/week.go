package utils

import "time"

const WeekSeconds = 7 * 24 * 60 * 60

// Week returns the protocol week containing now. Weeks count from startTime, a unix timestamp.
func Week(now time.Time, startTime int64) int64 {
	elapsed := now.Unix() - startTime
	if elapsed < 0 {
		return 0
	}
	return elapsed / WeekSeconds
}

// WeekStart returns the unix timestamp at which week begins.
func WeekStart(week, startTime int64) int64 {
	return startTime + week*WeekSeconds
}
