// Package taskstore keeps upload task records in memory. Records do not
// survive a restart; callers remove finished tasks explicitly.
package taskstore

import (
	"sync"
	"time"

	"github.com/you-humble/filedrive/internal/domain"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	task domain.Task
}

type memoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*entry
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[string]*entry)}
}

// Create inserts a pending record and returns its generated id.
func (s *memoryStore) Create(fileName, folderPath string) string {
	id := uuid.NewString()

	e := &entry{task: domain.Task{
		TaskID:     id,
		FileName:   fileName,
		FolderPath: folderPath,
		Status:     domain.StatusPending,
		StartTime:  time.Now(),
	}}

	s.mu.Lock()
	s.tasks[id] = e
	s.mu.Unlock()

	return id
}

// Task returns a copy of the record, so pollers never observe a transition
// half-applied.
func (s *memoryStore) Task(id string) (domain.Task, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Task{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task, true
}

// Remove deletes the record. Removing an unknown id is not an error.
func (s *memoryStore) Remove(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Progress moves the task to status with the given progress checkpoint.
func (s *memoryStore) Progress(id string, status domain.TaskStatus, percent int) bool {
	return s.update(id, func(t *domain.Task) {
		t.Status = status
		t.ProgressPercent = percent
	})
}

func (s *memoryStore) Complete(id, storedPath string, storedSize int64, message string) bool {
	return s.update(id, func(t *domain.Task) {
		now := time.Now()
		t.Status = domain.StatusCompleted
		t.ProgressPercent = 100
		t.StoredPath = storedPath
		t.StoredSize = storedSize
		t.Message = message
		t.EndTime = &now
	})
}

func (s *memoryStore) Fail(id, message string) bool {
	return s.update(id, func(t *domain.Task) {
		now := time.Now()
		t.Status = domain.StatusFailed
		t.Message = message
		t.EndTime = &now
	})
}

var statusRank = map[domain.TaskStatus]int{
	domain.StatusPending:    0,
	domain.StatusInProgress: 1,
	domain.StatusCompleted:  2,
	domain.StatusFailed:     2,
}

// update applies fn atomically with respect to other transitions on the same
// id; entries lock independently, so tasks never block each other. Terminal
// records are immutable, status only moves forward, and progress never
// decreases.
func (s *memoryStore) update(id string, fn func(*domain.Task)) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.Terminal() {
		return false
	}

	prev := e.task
	fn(&e.task)
	if statusRank[e.task.Status] < statusRank[prev.Status] {
		e.task = prev
		return false
	}
	if e.task.ProgressPercent < prev.ProgressPercent {
		e.task.ProgressPercent = prev.ProgressPercent
	}

	return true
}

func (s *memoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	return e, ok
}
