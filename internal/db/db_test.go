package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/queueview/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrationsAreIdempotent(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, runMigrations(d.conn, migrationsFS))

	var n int
	require.NoError(t, d.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestJobLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	job := &core.SpoolJob{ID: 7, Dest: "hanna-duplex", Size: 1024, State: core.JobStatePending, Title: "thesis.pdf", User: "wan"}
	require.NoError(t, d.Jobs.UpsertJob(ctx, job))

	got, err := d.Jobs.GetJobByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, job, got)

	job.Title = "thesis-v2.pdf"
	job.ActualPrinterURI = "ipp://spool/printers/hanna"
	require.NoError(t, d.Jobs.UpsertJob(ctx, job))

	require.NoError(t, d.Jobs.UpdateJobState(ctx, 7, core.JobStateCompleted))
	got, err = d.Jobs.GetJobByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "thesis-v2.pdf", got.Title)
	assert.Equal(t, core.JobStateCompleted, got.State)

	require.NoError(t, d.Jobs.DeleteJob(ctx, 7))
	_, err = d.Jobs.GetJobByID(ctx, 7)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, d.Jobs.DeleteJob(ctx, 7), ErrJobNotFound)
	assert.ErrorIs(t, d.Jobs.UpdateJobState(ctx, 7, core.JobStateHeld), ErrJobNotFound)
}

func TestListJobsNewestFirst(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	for _, id := range []int64{2, 9, 4} {
		require.NoError(t, d.Jobs.UpsertJob(ctx, &core.SpoolJob{ID: id, Dest: "a", State: core.JobStatePending}))
	}

	jobs, err := d.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, int64(9), jobs[0].ID)
	assert.Equal(t, int64(2), jobs[2].ID)
}

func TestPrinters(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Printers.UpsertPrinter(ctx, "renoir", core.PrinterStateIdle))
	require.NoError(t, d.Printers.UpsertPrinter(ctx, "dali", core.PrinterStateBusy))
	require.NoError(t, d.Printers.UpsertPrinter(ctx, "renoir", core.PrinterStateStopped))

	p, err := d.Printers.GetPrinterByName(ctx, "renoir")
	require.NoError(t, err)
	assert.Equal(t, core.PrinterStateStopped, p.State)
	assert.False(t, p.UpdatedAt.IsZero())

	printers, err := d.ListPrinters(ctx, []string{"renoir", "dali", "unknown"})
	require.NoError(t, err)
	require.Len(t, printers, 2)
	assert.Equal(t, "dali", printers[0].Name)
	assert.Equal(t, "renoir", printers[1].Name)

	none, err := d.ListPrinters(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, d.Printers.DeletePrinter(ctx, "dali"))
	_, err = d.Printers.GetPrinterByName(ctx, "dali")
	assert.ErrorIs(t, err, ErrPrinterNotFound)
}

func TestClassMembers(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Classes.SetMembers(ctx, "lab", []string{"lab-b", "lab-a", "lab-a", ""}))
	members, err := d.ClassMembers(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a", "lab-b"}, members)

	require.NoError(t, d.Printers.UpsertPrinter(ctx, "dali", core.PrinterStateIdle))
	names, err := d.Classes.QueueNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dali", "lab"}, names)

	require.NoError(t, d.Classes.SetMembers(ctx, "lab", nil))
	members, err = d.ClassMembers(ctx, "lab")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestStoreFeedsPrintQueue(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Jobs.UpsertJob(ctx, &core.SpoolJob{ID: 1, Dest: "hanna-duplex", State: core.JobStatePending, Title: "a", User: "u"}))
	require.NoError(t, d.Jobs.UpsertJob(ctx, &core.SpoolJob{ID: 2, Dest: "dali", State: core.JobStatePending}))
	require.NoError(t, d.Printers.UpsertPrinter(ctx, "hanna", core.PrinterStateIdle))

	q, err := core.LoadPrintQueue(ctx, d, "hanna")
	require.NoError(t, err)

	s := q.Snapshot(core.PublishOptions{CompletedCount: 10})
	require.Len(t, s.Jobs, 1)
	assert.Equal(t, core.JobID(1), s.Jobs[0].ID)
	assert.Equal(t, []core.PrinterStatus{{Name: "hanna", Status: "idle"}}, s.Status)
}
