package capabilities

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct{}

func (failingStore) Matrix(ctx context.Context) (map[string][]Capability, error) {
	return nil, errors.New("db down")
}

func TestResolveKnownRole(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	set := resolver.Resolve(context.Background(), "recruiter")
	if !set.Can(CandidatesBulk) {
		t.Fatal("recruiter should hold candidates:bulk_upload")
	}
	if !set.Can(TasksPoll) {
		t.Fatal("recruiter should hold tasks:poll")
	}
}

func TestResolveUnknownRoleIsEmpty(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	set := resolver.Resolve(context.Background(), "intern")
	if set.Can(CandidatesRead) || set.Can(CandidatesBulk) {
		t.Fatal("unknown role should resolve to empty set")
	}
}

func TestResolveReadOnlyRole(t *testing.T) {
	resolver := NewResolver(NewMemoryStore())

	set := resolver.Resolve(context.Background(), "hiring_manager")
	if !set.Can(CandidatesRead) {
		t.Fatal("hiring_manager should read candidates")
	}
	if set.Can(CandidatesBulk) {
		t.Fatal("hiring_manager must not bulk upload")
	}
}

func TestResolveFallsBackOnStoreFailure(t *testing.T) {
	resolver := NewResolver(failingStore{})

	set := resolver.Resolve(context.Background(), "admin")
	if !set.Can(CandidatesBulk) {
		t.Fatal("expected default matrix fallback when store fails")
	}
}

func TestResolverCachesMatrix(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore()}
	resolver := NewResolver(store)

	resolver.Resolve(context.Background(), "admin")
	resolver.Resolve(context.Background(), "recruiter")
	resolver.Resolve(context.Background(), "guest")

	if store.calls != 1 {
		t.Fatalf("expected 1 matrix load, got %d", store.calls)
	}
}

type countingStore struct {
	inner Store
	calls int
}

func (s *countingStore) Matrix(ctx context.Context) (map[string][]Capability, error) {
	s.calls++
	return s.inner.Matrix(ctx)
}
