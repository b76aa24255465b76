package crypto

import (
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("hash must not equal the raw secret")
	}
	if err := h.Compare(hash, "pw1"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := h.Compare(hash, "pw2"); err == nil {
		t.Error("expected mismatch for wrong secret")
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("expected distinct hashes for the same secret")
	}
}

func TestUUIDGenerator_UniqueUnderConcurrency(t *testing.T) {
	g := NewUUIDGenerator()

	const n = 500
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := g.NewID()
			if err != nil {
				t.Errorf("new id: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("expected %d ids, got %d", n, len(seen))
	}
}
