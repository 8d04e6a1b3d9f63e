package core

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"dungeon-keeper/internal/logging"
)

// Clock abstracts wall-clock time so scheduled work can be driven by tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock
func SystemClock() Clock { return systemClock{} }

// Job is a unit of deferred work run by the Scheduler
type Job func(ctx context.Context)

// JobID identifies a scheduled job
type JobID uint64

type scheduledJob struct {
	id    JobID
	name  string
	at    time.Time
	run   Job
	index int
}

type jobQueue []*scheduledJob

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].id < q[j].id
	}
	return q[i].at.Before(q[j].at)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	job := x.(*scheduledJob)
	job.index = len(*q)
	*q = append(*q, job)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.index = -1
	*q = old[:n-1]
	return job
}

// Scheduler runs jobs at their fire time, ordered by time and then by insertion.
// All deferred bot work (timer completions, the reminder sweep) goes through one Scheduler.
type Scheduler struct {
	clock Clock
	log   *slog.Logger

	mu     sync.Mutex
	queue  jobQueue
	byID   map[JobID]*scheduledJob
	nextID JobID
	wake   chan struct{}
}

// NewScheduler creates a Scheduler reading time from clock
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		clock: clock,
		log:   logging.Component("scheduler"),
		byID:  make(map[JobID]*scheduledJob),
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the scheduler's current time
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// At schedules job to run at t
func (s *Scheduler) At(t time.Time, name string, job Job) JobID {
	s.mu.Lock()
	s.nextID++
	sj := &scheduledJob{id: s.nextID, name: name, at: t, run: job}
	heap.Push(&s.queue, sj)
	s.byID[sj.id] = sj
	earliest := s.queue[0] == sj
	s.mu.Unlock()

	if earliest {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return sj.id
}

// After schedules job to run d from now
func (s *Scheduler) After(d time.Duration, name string, job Job) JobID {
	return s.At(s.clock.Now().Add(d), name, job)
}

// Cancel removes a job that has not run yet
func (s *Scheduler) Cancel(id JobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, sj.index)
	delete(s.byID, id)
	return true
}

// Len returns the number of pending jobs
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// popDue removes and returns the earliest job if it is due
func (s *Scheduler) popDue(now time.Time) *scheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.queue[0].at.After(now) {
		return nil
	}
	sj := heap.Pop(&s.queue).(*scheduledJob)
	delete(s.byID, sj.id)
	return sj
}

// RunDue runs every job that is due at the current clock time, including jobs
// scheduled by those jobs when they are already due. It returns how many ran.
func (s *Scheduler) RunDue(ctx context.Context) int {
	ran := 0
	for {
		sj := s.popDue(s.clock.Now())
		if sj == nil {
			return ran
		}
		s.runJob(ctx, sj)
		ran++
	}
}

func (s *Scheduler) runJob(ctx context.Context, sj *scheduledJob) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", "job", sj.name, "panic", r)
		}
	}()
	sj.run(ctx)
}

// nextWait returns how long until the earliest job is due
func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at.Sub(s.clock.Now()), true
}

// Run drives the scheduler with a real timer until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("Starting scheduler loop...")
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.RunDue(ctx)

		wait, ok := s.nextWait()
		if !ok {
			wait = time.Hour
		}
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.log.Info("Shutdown signal received, stopping scheduler loop...")
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}
