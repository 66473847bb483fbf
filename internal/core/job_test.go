package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinisher(t *testing.T) {
	assert.Equal(t, FinisherDuplex, (&SpoolJob{Dest: "hanna-duplex"}).Finisher())
	assert.Equal(t, FinisherSimplex, (&SpoolJob{Dest: "dali-simplex"}).Finisher())
	assert.Equal(t, FinisherPlain, (&SpoolJob{Dest: "dali"}).Finisher())
}

func TestPhysicalDest(t *testing.T) {
	assert.Equal(t, "hanna", (&SpoolJob{Dest: "hanna-duplex"}).PhysicalDest())
	assert.Equal(t, "dali", (&SpoolJob{Dest: "dali"}).PhysicalDest())
}

func TestOutputPrinterName(t *testing.T) {
	j := &SpoolJob{Dest: "102-duplex"}
	assert.Equal(t, "102", j.OutputPrinterName())

	j.ActualPrinterURI = "ipp://spool.example/printers/renoir-duplex"
	assert.Equal(t, "renoir", j.OutputPrinterName())
}

func TestSambaJobs(t *testing.T) {
	j := &SpoolJob{Title: "smbprn.00000042 Quarterly Report.pdf"}
	assert.True(t, j.IsWindowsJob())
	assert.Equal(t, SourceSamba, j.Source())
	assert.Equal(t, "Quarterly Report.pdf", j.RealTitle())

	plain := &SpoolJob{Title: "thesis.ps"}
	assert.False(t, plain.IsWindowsJob())
	assert.Equal(t, SourceOther, plain.Source())
	assert.Equal(t, "thesis.ps", plain.RealTitle())
}

func TestDisplayTitle(t *testing.T) {
	j := &SpoolJob{Title: "Marry Had A Little Lamb"}
	assert.Equal(t, "Marry Had A Li...", j.DisplayTitle(14))
	assert.Equal(t, "Marry Had A Little Lamb", j.DisplayTitle(0))

	short := &SpoolJob{Title: "notes"}
	assert.Equal(t, "notes", short.DisplayTitle(14))

	wide := &SpoolJob{Title: "Überweisungsträger"}
	assert.Equal(t, "Überweisungstr...", wide.DisplayTitle(14))
}

func TestJobStates(t *testing.T) {
	assert.Equal(t, "pending", JobStatePending.String())
	assert.Equal(t, "completed", JobStateCompleted.String())
	assert.Equal(t, "unknown", JobState(42).String())

	for state, complete := range map[JobState]bool{
		JobStatePending:    false,
		JobStateHeld:       false,
		JobStateProcessing: false,
		JobStateStopped:    false,
		JobStateCanceled:   true,
		JobStateAborted:    true,
		JobStateCompleted:  true,
	} {
		assert.Equal(t, complete, (&SpoolJob{State: state}).IsComplete(), state.String())
	}

	state, ok := ParseJobState("held")
	assert.True(t, ok)
	assert.Equal(t, JobStateHeld, state)
	_, ok = ParseJobState("nope")
	assert.False(t, ok)
}

func TestPrinterStates(t *testing.T) {
	assert.Equal(t, "busy", PrinterStateBusy.String())
	assert.Equal(t, "deactivated", PrinterStateDeactivated.String())
	assert.Equal(t, "unknown", PrinterState(2).String())

	state, ok := ParsePrinterState("idle")
	assert.True(t, ok)
	assert.Equal(t, PrinterStateIdle, state)
}

func TestPublish(t *testing.T) {
	j := &SpoolJob{
		ID:    17,
		Dest:  "hanna-duplex",
		State: JobStateProcessing,
		Title: "smbprn.00000017 A rather long document title",
		User:  "wan",
	}

	assert.Equal(t, Job{
		ID:           17,
		PhysicalDest: "hanna",
		Finisher:     "hanna-duplex",
		Owner:        "wan",
		Title:        "A rather long ...",
		State:        "processing",
		Source:       "samba",
	}, j.Publish(14))
}

func TestRowID(t *testing.T) {
	assert.Equal(t, "job-42", JobID(42).RowID())
}
