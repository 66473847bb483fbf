package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the result of one poll. Legacy snapshots are bare job arrays
// and never carry a status list.
type Snapshot struct {
	Jobs      []Job
	Status    []PrinterStatus
	HasStatus bool
	Legacy    bool
}

type snapshotObject struct {
	Status json.RawMessage `json:"status"`
	Jobs   json.RawMessage `json:"jobs"`
}

// DecodeSnapshot accepts both wire shapes: a bare array of jobs or an object
// with jobs and status arrays.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedSnapshot)
	}

	switch data[0] {
	case '[':
		var jobs []Job
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		return &Snapshot{Jobs: jobs, Legacy: true}, nil
	case '{':
		var obj snapshotObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		if !isArray(obj.Jobs) {
			return nil, fmt.Errorf("%w: jobs is missing or not an array", ErrMalformedSnapshot)
		}

		s := &Snapshot{}
		if err := json.Unmarshal(obj.Jobs, &s.Jobs); err != nil {
			return nil, fmt.Errorf("%w: jobs: %v", ErrMalformedSnapshot, err)
		}

		if len(obj.Status) > 0 && !bytes.Equal(obj.Status, []byte("null")) {
			if !isArray(obj.Status) {
				return nil, fmt.Errorf("%w: status is not an array", ErrMalformedSnapshot)
			}
			if err := json.Unmarshal(obj.Status, &s.Status); err != nil {
				return nil, fmt.Errorf("%w: status: %v", ErrMalformedSnapshot, err)
			}
			s.HasStatus = true
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: neither an array nor an object", ErrMalformedSnapshot)
	}
}

// MarshalJSON writes the current object shape, or the bare array for legacy
// snapshots.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	jobs := s.Jobs
	if jobs == nil {
		jobs = []Job{}
	}
	if s.Legacy {
		return json.Marshal(jobs)
	}

	status := s.Status
	if status == nil {
		status = []PrinterStatus{}
	}
	return json.Marshal(struct {
		Jobs   []Job           `json:"jobs"`
		Status []PrinterStatus `json:"status"`
	}{jobs, status})
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
