// Package jobsvc implements the job model and its lifecycle state machine,
// generalizing the fsm-driven job from the IPP server this codebase grew
// out of to the five-state model of the virtual printer core.
package jobsvc

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync/atomic"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/looplab/fsm"

	"github.com/rrohitkmr/vprinter/ipp"
)

// JobID uniquely identifies a job. Generated from an atomic counter seeded
// at process start combined with the start time, avoiding the collision
// risk of pure wall-clock generation (see DESIGN.md open-question #3).
// Values stay within the positive int32 range of the IPP job-id attribute.
type JobID int64

var jobSeq atomic.Int64

// NextJobID returns a fresh, monotonically increasing job id.
func NextJobID() JobID {
	return JobID(processEpochBase + jobSeq.Add(1))
}

// processEpochBase is the process start time in seconds, modulo 2^20,
// shifted left by 10 bits, so it stays below 2^30.
var processEpochBase = (time.Now().Unix() % (1 << 20)) << 10

// JobState is the externally visible job state, using the literal RFC
// 2911 §4.3.7 integer values rather than a compressed sequential range, so
// that job-state renders on the wire exactly as the protocol expects.
type JobState int32

const (
	JobPending    JobState = 3
	JobProcessing JobState = 5
	JobCanceled   JobState = 7
	JobAborted    JobState = 8
	JobCompleted  JobState = 9
)

// JobIncoming is not a state the FSM ever transitions into; it is the
// transient job-state value a Send-Document response reports when
// last-document=false, per §4.2. The job's real persisted state remains
// JobProcessing throughout.
const JobIncoming JobState = 4

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobProcessing:
		return "processing"
	case JobIncoming:
		return "processing"
	case JobCompleted:
		return "completed"
	case JobCanceled:
		return "canceled"
	case JobAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// JobStateReason mirrors RFC 2911 §4.3.8 keyword reasons, restricted to the
// ones this core ever emits.
type JobStateReason string

const (
	ReasonNone                     JobStateReason = "none"
	ReasonJobIncoming              JobStateReason = "job-incoming"
	ReasonProcessingToStopPoint    JobStateReason = "processing-to-stop-point"
	ReasonJobCompletedSuccessfully JobStateReason = "job-completed-successfully"
	ReasonJobCanceledByUser        JobStateReason = "job-canceled-by-user"
	ReasonJobCanceledBySystem      JobStateReason = "job-canceled-by-system"
	ReasonAbortedBySystem          JobStateReason = "aborted-by-system"
	ReasonDocumentFormatError      JobStateReason = "document-format-error"
)

const (
	evtProcess  = "process"
	evtComplete = "complete"
	evtCancel   = "cancel"
	evtAbort    = "abort"
)

// Job is a captured print job. Mutated only by the dispatcher or plugin
// hooks, per the ownership rule in §3 of the spec.
type Job struct {
	ID              JobID
	Name            string
	DocumentFormat  goipp.String
	Size            int64
	SubmissionTime  time.Time
	State           JobState
	StateReasons    []JobStateReason
	OriginatingUser string
	Metadata        map[string]any

	JobURI     string
	PrinterURI string

	sm *fsm.FSM
}

// New creates a job in the pending state.
func New(id JobID, name, documentFormat, printerURI, jobURIBase, user string) *Job {
	j := &Job{
		ID:              id,
		Name:            name,
		DocumentFormat:  goipp.String(documentFormat),
		SubmissionTime:  time.Now(),
		State:           JobPending,
		StateReasons:    []JobStateReason{ReasonNone},
		OriginatingUser: user,
		Metadata:        make(map[string]any),
		PrinterURI:      printerURI,
		JobURI:          path.Join(jobURIBase, fmt.Sprintf("%d", id)),
	}
	j.sm = newFSM(j)
	return j
}

func newFSM(j *Job) *fsm.FSM {
	lg := slog.With("job_id", j.ID, "job_name", j.Name)
	return fsm.NewFSM(
		JobPending.String(),
		[]fsm.EventDesc{
			{Name: evtProcess, Src: []string{JobPending.String()}, Dst: JobProcessing.String()},
			{Name: evtComplete, Src: []string{JobProcessing.String()}, Dst: JobCompleted.String()},
			{Name: evtCancel, Src: []string{JobPending.String(), JobProcessing.String()}, Dst: JobCanceled.String()},
			{Name: evtAbort, Src: []string{JobPending.String(), JobProcessing.String()}, Dst: JobAborted.String()},
		},
		fsm.Callbacks{
			evtProcess: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job processing")
				j.State = JobProcessing
				j.StateReasons = []JobStateReason{ReasonProcessingToStopPoint}
			},
			evtComplete: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job completed")
				j.State = JobCompleted
				j.StateReasons = []JobStateReason{ReasonJobCompletedSuccessfully}
			},
			evtCancel: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job canceled")
				j.State = JobCanceled
				j.StateReasons = reasonsOrDefault(e.Args, ReasonJobCanceledByUser)
			},
			evtAbort: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job aborted")
				j.State = JobAborted
				j.StateReasons = reasonsOrDefault(e.Args, ReasonAbortedBySystem)
			},
		},
	)
}

func reasonsOrDefault(args []interface{}, def JobStateReason) []JobStateReason {
	if len(args) == 0 {
		return []JobStateReason{def}
	}
	out := make([]JobStateReason, 0, len(args))
	for _, a := range args {
		if r, ok := a.(JobStateReason); ok {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []JobStateReason{def}
	}
	return out
}

// MarkProcessing transitions the job to the processing state (used by
// Print-Job/Send-Document once the before-hooks accept the request).
func (j *Job) MarkProcessing(ctx context.Context) error {
	return j.sm.Event(ctx, evtProcess)
}

// Complete transitions the job to the completed state (Send-Document with
// last-document=true).
func (j *Job) Complete(ctx context.Context) error {
	if j.sm.Current() == JobPending.String() {
		if err := j.sm.Event(ctx, evtProcess); err != nil {
			return err
		}
	}
	return j.sm.Event(ctx, evtComplete)
}

// Cancel transitions the job to the canceled state.
func (j *Job) Cancel(ctx context.Context, reasons ...JobStateReason) error {
	args := make([]interface{}, len(reasons))
	for i, r := range reasons {
		args[i] = r
	}
	return j.sm.Event(ctx, evtCancel, args...)
}

// Abort transitions the job to the aborted state.
func (j *Job) Abort(ctx context.Context, reasons ...JobStateReason) error {
	args := make([]interface{}, len(reasons))
	for i, r := range reasons {
		args[i] = r
	}
	return j.sm.Event(ctx, evtAbort, args...)
}

// Attributes renders the job-attributes group per RFC 2911 §4.3 / RFC 3380,
// as returned by Get-Job-Attributes and embedded in Print-Job/Send-Document
// responses.
func (j *Job) Attributes() goipp.Attributes {
	return j.attributesWithState(j.State, j.StateReasons...)
}

// TransientAttributes renders the job-attributes group with state/reasons
// substituted for the job's real persisted values, without mutating the
// job. Used for Send-Document(last-document=false), whose reported
// job-state=processing(4)/"job-incoming" is not itself a persisted FSM
// transition (see jobsvc.JobIncoming).
func (j *Job) TransientAttributes(state JobState, reasons ...JobStateReason) goipp.Attributes {
	return j.attributesWithState(state, reasons...)
}

func (j *Job) attributesWithState(state JobState, reasons ...JobStateReason) goipp.Attributes {
	var attrs goipp.Attributes
	add := func(name string, tag goipp.Tag, values ...goipp.Value) {
		attrs = ipp.Adder(attrs)(name, tag, values...)
	}
	add("job-id", goipp.TagInteger, goipp.Integer(j.ID))
	add("job-uri", goipp.TagURI, goipp.String(j.JobURI))
	add("job-state", goipp.TagEnum, goipp.Integer(state))
	add("job-state-reasons", goipp.TagKeyword, ipp.StringsToValues(reasons)...)
	add("job-printer-uri", goipp.TagURI, goipp.String(j.PrinterURI))
	add("job-originating-user-name", goipp.TagName, goipp.String(j.OriginatingUser))
	add("job-name", goipp.TagName, goipp.String(j.Name))
	add("time-at-creation", goipp.TagInteger, goipp.Integer(j.SubmissionTime.Unix()))
	return attrs
}

// IsTerminal reports whether the job has reached a state it never leaves.
func (j *Job) IsTerminal() bool {
	switch j.State {
	case JobCompleted, JobCanceled, JobAborted:
		return true
	default:
		return false
	}
}
