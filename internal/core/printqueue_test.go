package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	jobs     []*SpoolJob
	printers map[string]PrinterState
	classes  map[string][]string
	err      error
}

func (m *memStore) ListJobs(ctx context.Context) ([]*SpoolJob, error) {
	return m.jobs, m.err
}

func (m *memStore) ListPrinters(ctx context.Context, names []string) ([]*Printer, error) {
	var out []*Printer
	for _, n := range names {
		if state, ok := m.printers[n]; ok {
			out = append(out, &Printer{Name: n, State: state})
		}
	}
	return out, nil
}

func (m *memStore) ClassMembers(ctx context.Context, class string) ([]string, error) {
	return m.classes[class], nil
}

func TestBaseQueueName(t *testing.T) {
	assert.Equal(t, "reiniger", BaseQueueName("reiniger-duplex"))
	assert.Equal(t, "reiniger", BaseQueueName("reiniger-simplex"))
	assert.Equal(t, "reiniger", BaseQueueName("reiniger"))
}

func TestLoadPrintQueueFiltersByPhysicalDest(t *testing.T) {
	store := &memStore{
		jobs: []*SpoolJob{
			{ID: 1, Dest: "hanna", State: JobStatePending},
			{ID: 2, Dest: "hanna-duplex", State: JobStatePending},
			{ID: 3, Dest: "dali", State: JobStatePending},
		},
		printers: map[string]PrinterState{"hanna": PrinterStateIdle, "dali": PrinterStateBusy},
	}

	q, err := LoadPrintQueue(context.Background(), store, "hanna")
	require.NoError(t, err)

	assert.Equal(t, []string{"hanna"}, q.Names)
	require.Len(t, q.Jobs, 2)
	assert.Equal(t, int64(2), q.Jobs[0].ID)
	assert.Equal(t, int64(1), q.Jobs[1].ID)
	assert.Equal(t, []PrinterStatus{{Name: "hanna", Status: "idle"}}, q.Status())
}

func TestLoadPrintQueueIncludesClassMembers(t *testing.T) {
	store := &memStore{
		jobs: []*SpoolJob{
			{ID: 1, Dest: "lab", State: JobStatePending},
			{ID: 2, Dest: "lab-a-duplex", State: JobStatePending},
			{ID: 3, Dest: "lab-b", State: JobStateProcessing},
			{ID: 4, Dest: "office", State: JobStatePending},
		},
		printers: map[string]PrinterState{
			"lab-a": PrinterStateIdle,
			"lab-b": PrinterStateProcessing,
		},
		classes: map[string][]string{"lab": {"lab-a", "lab-b"}},
	}

	q, err := LoadPrintQueue(context.Background(), store, "lab")
	require.NoError(t, err)

	assert.Equal(t, []string{"lab", "lab-a", "lab-b"}, q.Names)

	var ids []int64
	for _, j := range q.Jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
	assert.Len(t, q.Status(), 2)
}

func TestLoadPrintQueueError(t *testing.T) {
	_, err := LoadPrintQueue(context.Background(), &memStore{err: errors.New("disk gone")}, "x")
	assert.Error(t, err)
}

func TestPublishedJobsKeepsAllPendingAndRecentCompleted(t *testing.T) {
	q := &PrintQueue{Name: "hanna"}
	for id := int64(30); id >= 1; id-- {
		state := JobStateCompleted
		if id%10 == 0 {
			state = JobStatePending
		}
		q.Jobs = append(q.Jobs, &SpoolJob{ID: id, Dest: "hanna", State: state})
	}

	published := q.PublishedJobs(5)

	var ids []int64
	for _, j := range published {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []int64{30, 29, 28, 27, 26, 25, 20, 10}, ids)
}

func TestSnapshot(t *testing.T) {
	q := &PrintQueue{
		Name: "hanna",
		Jobs: []*SpoolJob{
			{ID: 2, Dest: "hanna-duplex", State: JobStateHeld, Title: "a", User: "u"},
			{ID: 1, Dest: "hanna", State: JobStateCompleted, Title: "b", User: "v"},
		},
		Printers: []*Printer{{Name: "hanna", State: PrinterStateStopped}},
	}

	s := q.Snapshot(PublishOptions{CompletedCount: 10})
	assert.True(t, s.HasStatus)
	assert.False(t, s.Legacy)
	require.Len(t, s.Jobs, 2)
	assert.Equal(t, JobID(2), s.Jobs[0].ID)
	assert.Equal(t, "held", s.Jobs[0].State)
	assert.Equal(t, []PrinterStatus{{Name: "hanna", Status: "stopped"}}, s.Status)

	none := q.Snapshot(PublishOptions{CompletedCount: 0})
	require.Len(t, none.Jobs, 1)
	assert.Equal(t, JobID(2), none.Jobs[0].ID)
}
