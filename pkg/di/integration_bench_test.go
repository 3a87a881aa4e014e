package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-typed-cache/cache"
)

// TestConcurrentAccess tests concurrent access to remembered lookups
func TestConcurrentAccess(t *testing.T) {
	container, err := NewContainer(cache.Config{InitialCapacity: 128})
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	source := newMockUserSource()
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user-%d", i)
		source.Update(User{ID: id, Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("user%d@example.com", i)})
	}
	svc := &userService{container: container, source: source}

	ctx := context.Background()
	const numGoroutines = 50
	const operationsPerGoroutine = 20

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				userID := fmt.Sprintf("user-%d", (workerID*operationsPerGoroutine+j)%100)

				user, err := svc.GetByID(ctx, userID)
				if err != nil {
					errors <- fmt.Errorf("worker %d operation %d GetByID failed: %v", workerID, j, err)
					continue
				}
				if user.ID != userID {
					errors <- fmt.Errorf("worker %d operation %d got user %s, want %s", workerID, j, user.ID, userID)
					continue
				}

				if j%10 == 0 {
					if _, err := svc.Count(ctx); err != nil {
						errors <- fmt.Errorf("worker %d operation %d Count failed: %v", workerID, j, err)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	var errorCount int
	for err := range errors {
		t.Error(err)
		errorCount++
		if errorCount > 10 {
			t.Error("... and more errors")
			break
		}
	}

	if errorCount > 0 {
		t.Fatalf("Concurrent access test failed with %d errors", errorCount)
	}

	// every id is fetched at most once since nothing is invalidated
	totalOperations := numGoroutines * operationsPerGoroutine
	getByIDCalls := source.getCallCount("GetByID")
	if getByIDCalls > 100 {
		t.Errorf("Expected at most 100 GetByID calls, got %d", getByIDCalls)
	}
	if countCalls := source.getCallCount("Count"); countCalls != 1 {
		t.Errorf("Expected a single Count call, got %d", countCalls)
	}

	t.Logf("Concurrent test completed: %d operations resulted in %d GetByID calls (%.1f%% cache hit rate)",
		totalOperations, getByIDCalls, float64(totalOperations-getByIDCalls)/float64(totalOperations)*100)
}

// TestConcurrentReadWrite mixes reads with invalidations
func TestConcurrentReadWrite(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	source := newMockUserSource()
	svc := &userService{container: container, source: source}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := svc.GetByID(ctx, "1"); err != nil {
					t.Errorf("reader %d: %v", i, err)
					return
				}
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				svc.Update(User{ID: "1", Name: fmt.Sprintf("John %d-%d", i, j), Email: "john@example.com"})
			}
		}(i)
	}
	wg.Wait()

	// after the dust settles a fresh read reflects the source
	svc.container.Forget("users.GetByID", "1")
	user, err := svc.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	latest, _ := source.GetByID(ctx, "1")
	if user != latest {
		t.Errorf("Expected %+v, got %+v", latest, user)
	}
}

// BenchmarkRememberHit measures the hot path of a remembered lookup
func BenchmarkRememberHit(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}

	ctx := context.Background()
	fetch := func(ctx context.Context) (User, error) {
		return User{ID: "1", Name: "John Doe"}, nil
	}
	if _, err := Remember(ctx, container, "users.GetByID", []any{"1"}, fetch); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Remember(ctx, container, "users.GetByID", []any{"1"}, fetch)
	}
}

// BenchmarkKeySerializationPerformance compares plain and hashed keys for typical arguments
func BenchmarkKeySerializationPerformance(b *testing.B) {
	args := []any{"tenant-1", 42, map[string]any{"sort": "name", "limit": 50}, []string{"a", "b", "c"}}

	serializers := map[string]cache.KeySerializer{
		"default": cache.NewDefaultKeySerializer(),
		"hashed":  cache.NewHashedKeySerializer("bench"),
	}

	for name, serializer := range serializers {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = serializer.SerializeKey("users.List", args...)
			}
		})
	}
}

// BenchmarkConcurrentCacheAccess exercises parallel readers over a shared container
func BenchmarkConcurrentCacheAccess(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user-%d", i)
		_, _ = Remember(ctx, container, "users.GetByID", []any{id}, func(ctx context.Context) (User, error) {
			return User{ID: id}, nil
		})
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			id := fmt.Sprintf("user-%d", i%100)
			_, _ = Remember(ctx, container, "users.GetByID", []any{id}, func(ctx context.Context) (User, error) {
				return User{ID: id}, nil
			})
			i++
		}
	})
}
