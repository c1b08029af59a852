package filegen

import "sync"

// keyedMutex serializes operations sharing the same string key without
// serializing unrelated keys, mirroring internal/ingestion's own
// keyedMutex — here it keeps two concurrent new_version calls for the
// same file from racing on current_version.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
