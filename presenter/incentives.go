package presenter

import (
	"sort"

	"github.com/prisma-monitor/indexer/entity"
)

// ForwardFill expands stored allocations into one entry per week of [from, to].
// A week without stored rows repeats the previous allocation; seed is the
// allocation in force before from.
func ForwardFill(seed, rows []*entity.UserIncentivePoints, from, to int64) []*WeekPoints {
	current := make(map[int64]int64, len(seed))
	for _, p := range seed {
		current[p.ReceiverID] = p.Points
	}
	byWeek := make(map[int64][]*entity.UserIncentivePoints)
	for _, p := range rows {
		byWeek[p.Week] = append(byWeek[p.Week], p)
	}

	weeks := make([]*WeekPoints, 0, to-from+1)
	for week := from; week <= to; week++ {
		if stored, ok := byWeek[week]; ok {
			current = make(map[int64]int64, len(stored))
			for _, p := range stored {
				current[p.ReceiverID] = p.Points
			}
		}
		points := make([]*ReceiverPoints, 0, len(current))
		for receiver, v := range current {
			if v != 0 {
				points = append(points, &ReceiverPoints{ReceiverID: receiver, Points: v})
			}
		}
		sort.Slice(points, func(i, j int) bool { return points[i].ReceiverID < points[j].ReceiverID })
		weeks = append(weeks, &WeekPoints{Week: week, Points: points})
	}
	return weeks
}
