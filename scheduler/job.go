package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownDomain = errors.New("unknown sync domain")

const (
	DomainChain         = "chain"
	DomainRevenue       = "revenue"
	DomainZaps          = "zaps"
	DomainStaking       = "staking"
	DomainDAOOwnership  = "dao_ownership"
	DomainDAOIncentives = "dao_incentives"
	DomainDAOBoost      = "dao_boost"
	DomainDAOWeights    = "dao_weights"
)

// Job is one sync pass of a domain on a chain.
type Job struct {
	Chain  string
	Domain string
}

func (j Job) String() string {
	return j.Chain + "/" + j.Domain
}

type RunFunc func(ctx context.Context) error

// Registry maps jobs to the functions running them.
type Registry struct {
	runners map[Job]RunFunc
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[Job]RunFunc)}
}

func (r *Registry) Register(chain, domain string, fn RunFunc) {
	r.runners[Job{Chain: chain, Domain: domain}] = fn
}

func (r *Registry) Lookup(job Job) (RunFunc, error) {
	fn, ok := r.runners[job]
	if !ok {
		return nil, fmt.Errorf("%s: %w", job, ErrUnknownDomain)
	}
	return fn, nil
}

// Jobs returns registered jobs ordered by chain, then domain.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.runners))
	for job := range r.runners {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Chain != jobs[j].Chain {
			return jobs[i].Chain < jobs[j].Chain
		}
		return jobs[i].Domain < jobs[j].Domain
	})
	return jobs
}
