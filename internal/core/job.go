package core

import (
	"path"
	"strings"
)

type JobState int

const (
	JobStatePending    JobState = 3
	JobStateHeld       JobState = 4
	JobStateProcessing JobState = 5
	JobStateStopped    JobState = 6
	JobStateCanceled   JobState = 7
	JobStateAborted    JobState = 8
	JobStateCompleted  JobState = 9
)

var jobStateNames = map[JobState]string{
	JobStatePending:    "pending",
	JobStateHeld:       "held",
	JobStateProcessing: "processing",
	JobStateStopped:    "stopped",
	JobStateCanceled:   "canceled",
	JobStateAborted:    "aborted",
	JobStateCompleted:  "completed",
}

func (s JobState) String() string {
	if name, ok := jobStateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s JobState) Valid() bool {
	_, ok := jobStateNames[s]
	return ok
}

const (
	FinisherSimplex = "simplex"
	FinisherDuplex  = "duplex"
	FinisherPlain   = "plain"

	SourceSamba = "samba"
	SourceOther = "other"
)

// SpoolJob is a job as the spooler knows it, before publishing.
type SpoolJob struct {
	ID               int64
	Dest             string
	Size             int64
	State            JobState
	Title            string
	User             string
	ActualPrinterURI string
}

// Finisher reports the finishing mode encoded in the destination queue name,
// e.g. hanna-duplex.
func (j *SpoolJob) Finisher() string {
	for _, f := range []string{FinisherSimplex, FinisherDuplex} {
		if strings.Contains(j.Dest, f) {
			return f
		}
	}
	return FinisherPlain
}

// PhysicalDest is the destination queue without its finisher suffix.
func (j *SpoolJob) PhysicalDest() string {
	return j.physicalDestOf(j.Dest)
}

func (j *SpoolJob) physicalDestOf(name string) string {
	if f := j.Finisher(); f != FinisherPlain {
		return strings.ReplaceAll(name, "-"+f, "")
	}
	return name
}

// OutputPrinterName is the printer the paper comes out of. Jobs sent to a
// class report the member that actually took them once the spooler knows.
func (j *SpoolJob) OutputPrinterName() string {
	dest := j.Dest
	if j.ActualPrinterURI != "" {
		dest = j.ActualPrinterURI
	}
	return j.physicalDestOf(path.Base(dest))
}

func (j *SpoolJob) IsWindowsJob() bool {
	return strings.Contains(j.Title, "smbprn")
}

func (j *SpoolJob) Source() string {
	if j.IsWindowsJob() {
		return SourceSamba
	}
	return SourceOther
}

// RealTitle strips the samba spool prefix ("smbprn.00000042 Report.pdf").
func (j *SpoolJob) RealTitle() string {
	if j.IsWindowsJob() {
		if _, rest, ok := strings.Cut(j.Title, " "); ok {
			return rest
		}
	}
	return j.Title
}

// DisplayTitle truncates the real title to max runes plus an ellipsis.
func (j *SpoolJob) DisplayTitle(max int) string {
	t := []rune(j.RealTitle())
	if max > 0 && len(t) > max {
		return string(t[:max]) + "..."
	}
	return string(t)
}

func (j *SpoolJob) IsComplete() bool {
	switch j.State {
	case JobStateAborted, JobStateCanceled, JobStateCompleted:
		return true
	}
	return false
}

// Publish converts the job to its wire form.
func (j *SpoolJob) Publish(titleLength int) Job {
	return Job{
		ID:           JobID(j.ID),
		State:        j.State.String(),
		PhysicalDest: j.OutputPrinterName(),
		Title:        j.DisplayTitle(titleLength),
		Owner:        j.User,
		Finisher:     j.Dest,
		Source:       j.Source(),
	}
}
