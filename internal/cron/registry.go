package cron

import (
	"context"
	"errors"
	"fmt"
)

// Job is one maintenance task run by the worker each cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order. Names are unique because they
// label the job metrics.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

func (r *Registry) Register(jobs ...Job) error {
	for _, job := range jobs {
		if job == nil {
			return errors.New("cron: nil job")
		}
		name := job.Name()
		if name == "" {
			return errors.New("cron: job name is required")
		}
		if _, dup := r.names[name]; dup {
			return fmt.Errorf("cron: job %q already registered", name)
		}
		r.names[name] = struct{}{}
		r.jobs = append(r.jobs, job)
	}
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
