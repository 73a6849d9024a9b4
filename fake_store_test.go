package cistash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeStore is an in-memory Store with the prefix-listing semantics of a
// flat object namespace, plus failure injection for maintenance tests.
type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	modified    map[string]time.Time
	noTimestamp map[string]bool // listed, but head yields no timestamp
	vanished    map[string]bool // listed, but head yields not-found
	deleteErr   map[string]error
	listErr     map[string]error
	deleted     []string
	writes      map[string]int // actual PutIfAbsent writes per key

	putDelay    time.Duration
	inFlight    int
	maxInFlight int
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:     make(map[string][]byte),
		modified:    make(map[string]time.Time),
		noTimestamp: make(map[string]bool),
		vanished:    make(map[string]bool),
		deleteErr:   make(map[string]error),
		listErr:     make(map[string]error),
		writes:      make(map[string]int),
	}
}

func (f *fakeStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.modified[key] = time.Now()
	return nil
}

func (f *fakeStore) PutIfAbsent(ctx context.Context, key string, r io.Reader, size int64) (bool, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	_, exists := f.objects[key]
	f.mu.Unlock()

	if f.putDelay > 0 {
		time.Sleep(f.putDelay)
	}

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if exists {
		return false, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.modified[key] = time.Now()
	f.writes[key]++
	f.mu.Unlock()
	return true, nil
}

func (f *fakeStore) Get(ctx context.Context, key string, w io.Writer) error {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	_, err := w.Write(data)
	return err
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) LastModified(ctx context.Context, key string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vanished[key] {
		return time.Time{}, fmt.Errorf("head %s: %w", key, ErrNotFound)
	}
	if f.noTimestamp[key] {
		return time.Time{}, fmt.Errorf("head %s: %w", key, ErrTimestampUnavailable)
	}
	mod, ok := f.modified[key]
	if !ok {
		return time.Time{}, fmt.Errorf("head %s: %w", key, ErrNotFound)
	}
	return mod, nil
}

func (f *fakeStore) ListContents(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[prefix]; err != nil {
		return nil, err
	}
	var keys []string
	for k := range f.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		keys = append(keys, k)
	}
	for k := range f.vanished {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeStore) ListCommonPrefixes(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[prefix]; err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	collect := func(k string) {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			return
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[prefix+rest[:i+1]] = true
		}
	}
	for k := range f.objects {
		collect(k)
	}
	for k := range f.vanished {
		collect(k)
	}
	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeStore) data(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

func testLogger() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
