package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultCompletedCount = 10
	DefaultTitleLength    = 14
)

// BaseQueueName drops the finisher suffix from a queue name, so that
// reiniger-duplex and reiniger-simplex both show the reiniger queue.
func BaseQueueName(name string) string {
	base, _, _ := strings.Cut(name, "-")
	return base
}

type PublishOptions struct {
	CompletedCount int
	TitleLength    int
}

// PrintQueue is a point-in-time view of one queue: its own jobs plus the jobs
// of every member when the queue is a class.
type PrintQueue struct {
	Name     string
	Names    []string
	Jobs     []*SpoolJob
	Printers []*Printer
}

// LoadPrintQueue gathers jobs and printer states for name from the store.
func LoadPrintQueue(ctx context.Context, store QueueStore, name string) (*PrintQueue, error) {
	members, err := store.ClassMembers(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load class members of %s: %w", name, err)
	}

	names := []string{name}
	for _, m := range members {
		if m != name {
			names = append(names, m)
		}
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	all, err := store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	seen := make(map[int64]bool)
	var jobs []*SpoolJob
	for _, j := range all {
		if !wanted[j.PhysicalDest()] || seen[j.ID] {
			continue
		}
		seen[j.ID] = true
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].ID > jobs[k].ID
	})

	printers, err := store.ListPrinters(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load printers: %w", err)
	}

	return &PrintQueue{
		Name:     name,
		Names:    names,
		Jobs:     jobs,
		Printers: printers,
	}, nil
}

func (q *PrintQueue) PendingJobs() []*SpoolJob {
	var out []*SpoolJob
	for _, j := range q.Jobs {
		if !j.IsComplete() {
			out = append(out, j)
		}
	}
	return out
}

// FinishedJobs returns complete jobs, most recent first.
func (q *PrintQueue) FinishedJobs() []*SpoolJob {
	var out []*SpoolJob
	for _, j := range q.Jobs {
		if j.IsComplete() {
			out = append(out, j)
		}
	}
	return out
}

// PublishedJobs is every pending job plus the most recent completed ones,
// highest id first.
func (q *PrintQueue) PublishedJobs(completedCount int) []*SpoolJob {
	finished := q.FinishedJobs()
	if completedCount >= 0 && len(finished) > completedCount {
		finished = finished[:completedCount]
	}

	out := append(q.PendingJobs(), finished...)
	sort.Slice(out, func(i, k int) bool {
		return out[i].ID > out[k].ID
	})
	return out
}

// Status lists the state of every printer behind the queue.
func (q *PrintQueue) Status() []PrinterStatus {
	status := make([]PrinterStatus, 0, len(q.Printers))
	for _, p := range q.Printers {
		status = append(status, PrinterStatus{Name: p.Name, Status: p.State.String()})
	}
	return status
}

func (q *PrintQueue) Snapshot(opts PublishOptions) *Snapshot {
	if opts.TitleLength <= 0 {
		opts.TitleLength = DefaultTitleLength
	}

	published := q.PublishedJobs(opts.CompletedCount)
	jobs := make([]Job, 0, len(published))
	for _, j := range published {
		jobs = append(jobs, j.Publish(opts.TitleLength))
	}

	return &Snapshot{
		Jobs:      jobs,
		Status:    q.Status(),
		HasStatus: true,
	}
}
