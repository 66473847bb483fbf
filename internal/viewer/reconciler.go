package viewer

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/orrn/queueview/internal/core"
)

// View is what a Reconciler renders into.
type View interface {
	Insert(job core.Job)
	Update(job core.Job)
	Remove(id core.JobID)
	SetStatus(status []core.PrinterStatus)
}

// Result lists what one Reconcile call changed. Added holds the ids the
// reconciler did not show before. A Table still fading such a row out brings
// it back with an update rather than an add.
type Result struct {
	Added     []core.JobID
	Updated   []core.JobID
	Removed   []core.JobID
	Unchanged int
	Status    bool
}

// Reconciler merges snapshots into a View. It remembers the last job it
// rendered under every id so that it never has to read the view back.
type Reconciler struct {
	mu    sync.Mutex
	view  View
	shown map[core.JobID]core.Job
	log   *slog.Logger
}

func NewReconciler(view View, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		view:  view,
		shown: make(map[core.JobID]core.Job),
		log:   logger.With("component", "reconciler"),
	}
}

// Reconcile renders s: the status list when the snapshot carries one, then
// every job in ascending id order, then removal of every displayed job the
// snapshot no longer has.
func (r *Reconciler) Reconcile(s *core.Snapshot) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result

	if s.HasStatus {
		status := append([]core.PrinterStatus(nil), s.Status...)
		sort.SliceStable(status, func(i, j int) bool {
			return status[i].Name < status[j].Name
		})
		r.view.SetStatus(status)
		res.Status = true
	}

	jobs := append([]core.Job(nil), s.Jobs...)
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})

	current := make(map[core.JobID]bool, len(jobs))
	for _, job := range jobs {
		current[job.ID] = true

		prev, ok := r.shown[job.ID]
		switch {
		case !ok:
			r.view.Insert(job)
			res.Added = append(res.Added, job.ID)
		case prev != job:
			r.view.Update(job)
			res.Updated = append(res.Updated, job.ID)
		default:
			res.Unchanged++
		}
		r.shown[job.ID] = job
	}

	for _, id := range sortedKeys(r.shown) {
		if current[id] {
			continue
		}
		r.view.Remove(id)
		delete(r.shown, id)
		res.Removed = append(res.Removed, id)
	}

	r.log.Debug("reconciled snapshot",
		"jobs", len(jobs),
		"added", len(res.Added),
		"updated", len(res.Updated),
		"removed", len(res.Removed),
	)
	return res
}

// Displayed returns the ids currently shown, ascending.
func (r *Reconciler) Displayed() []core.JobID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.shown)
}

// Reset forgets every displayed job without touching the view.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = make(map[core.JobID]core.Job)
}

func sortedKeys(m map[core.JobID]core.Job) []core.JobID {
	ids := make([]core.JobID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
