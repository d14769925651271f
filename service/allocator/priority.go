package allocator

import (
	"sort"
	"time"

	"github.com/viant/carealloc/model"
)

// ClampPriority bounds p to [PriorityHighest, PriorityLowest]
func ClampPriority(p int) int {
	switch {
	case p < model.PriorityHighest:
		return model.PriorityHighest
	case p > model.PriorityLowest:
		return model.PriorityLowest
	}
	return p
}

// EffectivePriority lowers base by one point for every full interval waited,
// never going below PriorityHighest.
func EffectivePriority(base int, waited, interval time.Duration) int {
	effective := ClampPriority(base)
	if interval > 0 && waited > 0 {
		effective -= int(waited / interval)
	}
	if effective < model.PriorityHighest {
		return model.PriorityHighest
	}
	return effective
}

// Candidate is a queued request with its priority at ranking time
type Candidate struct {
	Request           *model.Request
	EffectivePriority int
}

// Rank orders requests by (effective priority, submission time, id).
func Rank(requests []*model.Request, now time.Time, interval time.Duration) []*Candidate {
	ret := make([]*Candidate, 0, len(requests))
	for _, request := range requests {
		ret = append(ret, &Candidate{
			Request:           request,
			EffectivePriority: EffectivePriority(request.Priority, now.Sub(request.RequestedAt), interval),
		})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i], ret[j]
		if a.EffectivePriority != b.EffectivePriority {
			return a.EffectivePriority < b.EffectivePriority
		}
		if !a.Request.RequestedAt.Equal(b.Request.RequestedAt) {
			return a.Request.RequestedAt.Before(b.Request.RequestedAt)
		}
		return a.Request.ID < b.Request.ID
	})
	return ret
}

// orderResources sorts resources by (type, id), the pick order within a cycle.
func orderResources(resources []*model.Resource) {
	sort.SliceStable(resources, func(i, j int) bool {
		if resources[i].Type != resources[j].Type {
			return resources[i].Type < resources[j].Type
		}
		return resources[i].ID < resources[j].ID
	})
}
