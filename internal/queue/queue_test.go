package queue_test

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/port-experimental/repo-team-mapper/internal/queue"
)

func tempQueuePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "repos_to_process.txt")
}

func TestInitializeFreshRun(t *testing.T) {
	path := tempQueuePath(t)

	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error opening store, %v", err)
	}
	if s.Initialized() {
		t.Fatal("store without a file must not report initialized")
	}

	written, err := s.Initialize([]string{"acme/a", "acme/b", "acme/a", "acme/c"})
	if err != nil {
		t.Fatalf("error initializing store, %v", err)
	}
	if !written {
		t.Fatal("fresh run should write the queue file")
	}

	want := []string{"acme/a", "acme/b", "acme/c"}
	if got := s.Remaining(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected deduped listing order %v, got %v", want, got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("queue file should exist after initialize, %v", err)
	}
	if string(raw) != "acme/a\nacme/b\nacme/c\n" {
		t.Fatalf("unexpected file content %q", string(raw))
	}
}

func TestInitializeResume(t *testing.T) {
	path := tempQueuePath(t)
	if err := os.WriteFile(path, []byte("acme/b\nacme/c\n"), 0644); err != nil {
		t.Fatalf("failed to seed queue file, %v", err)
	}

	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error opening store, %v", err)
	}
	if !s.Initialized() {
		t.Fatal("existing file should mark the store initialized")
	}

	// a fresh listing must not clobber a partially drained queue
	written, err := s.Initialize([]string{"acme/a", "acme/b", "acme/c", "acme/d"})
	if err != nil {
		t.Fatalf("error on resume initialize, %v", err)
	}
	if written {
		t.Fatal("resume must leave the existing queue untouched")
	}

	want := []string{"acme/b", "acme/c"}
	if got := s.Remaining(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected resumed set %v, got %v", want, got)
	}
}

func TestRemovePersists(t *testing.T) {
	path := tempQueuePath(t)

	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error opening store, %v", err)
	}
	if _, err := s.Initialize([]string{"acme/a", "acme/b", "acme/c"}); err != nil {
		t.Fatalf("error initializing store, %v", err)
	}

	if err := s.Remove("acme/b"); err != nil {
		t.Fatalf("error removing id, %v", err)
	}
	// removing an id twice is a no-op
	if err := s.Remove("acme/b"); err != nil {
		t.Fatalf("second removal should be a no-op, %v", err)
	}

	reopened, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error reopening store, %v", err)
	}
	want := []string{"acme/a", "acme/c"}
	if got := reopened.Remaining(); !reflect.DeepEqual(got, want) {
		t.Fatalf("removal did not survive a restart, want %v got %v", want, got)
	}
}

func TestDrainRemovesFile(t *testing.T) {
	path := tempQueuePath(t)

	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error opening store, %v", err)
	}
	if _, err := s.Initialize([]string{"acme/a", "acme/b"}); err != nil {
		t.Fatalf("error initializing store, %v", err)
	}

	if err := s.Remove("acme/a"); err != nil {
		t.Fatalf("error removing id, %v", err)
	}
	if err := s.Remove("acme/b"); err != nil {
		t.Fatalf("error removing id, %v", err)
	}

	if s.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", s.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("drained queue should remove the file")
	}
}

func TestConcurrentRemove(t *testing.T) {
	path := tempQueuePath(t)

	ids := make([]string, 0, 32)
	for i := 0; i < 32; i++ {
		ids = append(ids, "acme/repo-"+string(rune('a'+i%26))+"-"+string(rune('0'+i/26)))
	}

	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("error opening store, %v", err)
	}
	if _, err := s.Initialize(ids); err != nil {
		t.Fatalf("error initializing store, %v", err)
	}

	var wg sync.WaitGroup
	for _, id := range ids[:len(ids)-1] {
		wg.Add(1)
		id := id
		go func() {
			defer wg.Done()
			if err := s.Remove(id); err != nil {
				t.Errorf("error removing %s, %v", id, err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Fatalf("expected one id left, got %d", s.Len())
	}
	if got := s.Remaining()[0]; got != ids[len(ids)-1] {
		t.Fatalf("expected %s left, got %s", ids[len(ids)-1], got)
	}
}
