package relay

import (
	"sync"
	"testing"
)

func TestFailureSet(t *testing.T) {
	s := NewFailureSet()

	if s.Len() != 0 {
		t.Fatal("new set should be empty")
	}
	if s.Add("a") {
		t.Error("first Add should report unseen")
	}
	if !s.Add("a") {
		t.Error("second Add should report seen")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after repeated Add, want 1", s.Len())
	}
	s.Add("b")
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestFailureSet_ConcurrentAdd(t *testing.T) {
	s := NewFailureSet()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, k := range []string{"x", "y", "z"} {
				s.Add(k)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}
