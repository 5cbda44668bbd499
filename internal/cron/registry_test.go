package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobsInOrder(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistrySkipsNilAndDuplicateNames(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "overdue_scan"}, &stubJob{name: "overdue_scan"})
	if got := registry.Names(); len(got) != 1 || got[0] != "overdue_scan" {
		t.Fatalf("unexpected names %v", got)
	}
	if registry.Register(&stubJob{name: "overdue_scan"}) {
		t.Fatalf("expected duplicate registration to be refused")
	}

	var zero Registry
	if !zero.Register(&stubJob{name: "x"}) {
		t.Fatalf("zero registry must accept jobs")
	}
}
