package queue

import (
	"os"
	"strings"
	"sync"
)

// Store is the durable remaining-work set. One repository id per line,
// rewritten atomically on every removal, so a crash loses at most the item
// that was in flight.
type Store struct {
	mu     sync.Mutex
	path   string
	ids    []string
	exists bool
}

// Open loads the queue file when it exists. An absent file means a fresh run
// and leaves the store empty until Initialize fills it.
func Open(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{path: path}, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}

	return &Store{path: path, ids: ids, exists: true}, nil
}

// Initialized reports whether a persisted queue was found at Open
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

// Initialize writes the queue file from a full listing, each id exactly once,
// listing order kept. A queue that already exists takes precedence and is
// left untouched, that is the resume contract. Returns whether a new file was
// written.
func (s *Store) Initialize(ids []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists {
		return false, nil
	}

	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	s.ids = deduped
	if err := s.flush(); err != nil {
		return false, err
	}
	s.exists = true
	return true, nil
}

// Remaining returns an ordered snapshot of the ids still to process
func (s *Store) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the remaining count
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Remove deletes id from the set and flushes before returning. Safe for
// concurrent workers removing different ids. On a flush failure the id stays
// in the set so the next run retries it.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, cur := range s.ids {
		if cur == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	ids := make([]string, 0, len(s.ids)-1)
	ids = append(ids, s.ids[:idx]...)
	ids = append(ids, s.ids[idx+1:]...)

	prev := s.ids
	s.ids = ids
	if err := s.flush(); err != nil {
		s.ids = prev
		return err
	}
	return nil
}

// flush rewrites the file via temp file + rename. A fully drained queue
// removes the file instead, the next run starts fresh. Caller holds the lock.
func (s *Store) flush() error {
	if len(s.ids) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		s.exists = false
		return nil
	}

	tmp := s.path + ".tmp"
	data := strings.Join(s.ids, "\n") + "\n"
	if err := os.WriteFile(tmp, []byte(data), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
