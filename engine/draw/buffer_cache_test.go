package draw

import (
	"testing"
)

func TestBufferSizeClass(t *testing.T) {
	tests := []struct {
		n    uint64
		want uint64
	}{
		{0, minBufferClass},
		{1, minBufferClass},
		{minBufferClass, minBufferClass},
		{minBufferClass + 1, minBufferClass * 2},
		{3000, 4096},
		{4096, 4096},
		{4097, 8192},
	}
	for _, tt := range tests {
		if got := bufferSizeClass(tt.n); got != tt.want {
			t.Errorf("bufferSizeClass(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBufferCacheReusesByClass(t *testing.T) {
	var stats FrameStats
	backend := &fakeBackend{}
	cache := newBufferCache(backend, &stats)

	small := make([]byte, 100)
	big := make([]byte, 5000)

	pairA, err := cache.request(small, small)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	pairB, err := cache.request(big, small)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if pairA == pairB {
		t.Fatal("distinct in-flight requests shared a pair")
	}
	if stats.BuffersCreated != 2 {
		t.Fatalf("expected 2 pairs created, got %d", stats.BuffersCreated)
	}

	cache.reset()

	// Same classes come back from the free lists, not the backend.
	pairC, err := cache.request(small, small)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if pairC != pairA {
		t.Error("small-class pair was not reused")
	}
	if stats.BuffersCreated != 2 {
		t.Errorf("reuse created new pairs: %d", stats.BuffersCreated)
	}

	// A class with no free pair allocates.
	if _, err := cache.request(big, big); err != nil {
		t.Fatalf("request: %v", err)
	}
	if stats.BuffersCreated != 3 {
		t.Errorf("expected a third pair for the new class, got %d", stats.BuffersCreated)
	}

	if cache.size() != 4 {
		t.Errorf("cache should own 4 pairs, got %d", cache.size())
	}
}

func TestBufferCacheUploadsData(t *testing.T) {
	var stats FrameStats
	backend := &fakeBackend{}
	cache := newBufferCache(backend, &stats)

	vdata := []byte{1, 2, 3, 4}
	idata := []byte{5, 6, 7, 8}
	pair, err := cache.request(vdata, idata)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	vb := pair.vertex.(*fakeBuffer)
	ib := pair.index.(*fakeBuffer)
	if string(vb.data) != string(vdata) || string(ib.data) != string(idata) {
		t.Error("request did not upload the provided data")
	}
	if vb.capacity != minBufferClass || ib.capacity != minBufferClass {
		t.Errorf("buffers not created at class capacity: %d/%d", vb.capacity, ib.capacity)
	}
}
