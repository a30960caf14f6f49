// Package spool implements job persistence: writing the detected document
// artifact to the job directory and tracking in-flight/completed jobs,
// generalizing the mutex-guarded map and ticker-driven retention worker
// from this codebase's original ippsrv/spool.go to an afero filesystem
// abstraction and the spec's print_job_{jobId}.{ext} naming.
package spool

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/rrohitkmr/vprinter/docpipe"
	"github.com/rrohitkmr/vprinter/events"
	"github.com/rrohitkmr/vprinter/jobsvc"
)

// Retention is how long a terminal (completed/canceled/aborted) job's
// record and artifact are kept before the background worker prunes them.
const Retention = 24 * time.Hour

var ErrJobNotFound = errors.New("job not found")

// Spool owns the job directory and the in-memory job registry.
type Spool struct {
	fs  afero.Fs
	dir string
	bus *events.Bus

	mu   sync.Mutex
	jobs map[jobsvc.JobID]*jobsvc.Job

	stop chan struct{}
}

// New creates a spool rooted at dir on fs, creating the directory if
// necessary, and starts its retention worker.
func New(fs afero.Fs, dir string, bus *events.Bus) (*Spool, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory %s: %w", dir, err)
	}
	s := &Spool{
		fs:   fs,
		dir:  dir,
		bus:  bus,
		jobs: make(map[jobsvc.JobID]*jobsvc.Job),
		stop: make(chan struct{}),
	}
	go s.worker()
	return s, nil
}

// Close stops the retention worker. The job directory itself is left
// intact (no cross-restart persistence is required, but this is not a
// destructive operation).
func (s *Spool) Close() error {
	close(s.stop)
	return nil
}

func (s *Spool) worker() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.pruneExpired()
		}
	}
}

func (s *Spool) pruneExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if j.IsTerminal() && time.Since(j.SubmissionTime) > Retention {
			if err := s.removeLocked(id); err != nil {
				slog.Error("failed to prune job", "job_id", id, "error", err)
			}
		}
	}
}

func (s *Spool) removeLocked(id jobsvc.JobID) error {
	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if err := s.fs.Remove(s.artifactPath(id, j)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	delete(s.jobs, id)
	return nil
}

// artifactPath returns the path a job's detected type maps to, looked up
// from the metadata the dispatcher stashes on the job.
func (s *Spool) artifactPath(id jobsvc.JobID, j *jobsvc.Job) string {
	ext := "raw"
	if e, ok := j.Metadata["artifact_ext"].(string); ok && e != "" {
		ext = e
	}
	return filepath.Join(s.dir, fmt.Sprintf("print_job_%d.%s", id, ext))
}

// Register adds a newly created job to the registry (Create-Job /
// Print-Job / Send-Document without data yet).
func (s *Spool) Register(j *jobsvc.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// Persist writes data (already decompressed/type-detected) to the job
// directory under its canonical name and publishes a job-received event.
// docType decides the file extension; mimeType is the declared
// document-format from the request, used only for the event payload.
func (s *Spool) Persist(j *jobsvc.Job, data []byte, docType docpipe.DocumentType, mimeType string) error {
	ext := docType.Extension()
	j.Metadata["artifact_ext"] = ext
	path := s.artifactPath(j.ID, j)

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write job artifact %s: %w", path, err)
	}
	j.Size = int64(len(data))

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.bus.Publish(events.JobReceived{
		Path:           abs,
		Size:           j.Size,
		ID:             int64(j.ID),
		MimeType:       mimeType,
		DetectedFormat: string(docType),
	})
	return nil
}

// Get returns a job by id.
func (s *Spool) Get(id jobsvc.JobID) (*jobsvc.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// List returns a snapshot of all known jobs.
func (s *Spool) List() []*jobsvc.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*jobsvc.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Count returns the number of jobs currently tracked (used for the
// queued-job-count attribute).
func (s *Spool) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Clear removes every job's artifact and registry entry (the "clear-jobs"
// administrative operation).
func (s *Spool) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs error
	for id := range s.jobs {
		if err := s.removeLocked(id); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
