package filegen

import "sync"

// ProgressStatus mirrors model.JobStatus for the subset a generation job
// reports out of band; kept distinct so this package never needs to know
// about persisted row shapes beyond what repo.GeneratedFileVersionRepo
// already tracks.
type ProgressStatus string

const (
	ProgressGenerating ProgressStatus = "generating"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// ProgressEvent is one frame of the out-of-band channel named in §4.9's
// asynchronous generation job.
type ProgressEvent struct {
	FileID   string
	Version  int
	Status   ProgressStatus
	Progress int
	Message  string
}

// ProgressBroadcaster fans out ProgressEvents to every subscriber
// currently listening for a given owner, the way internal/stream.Session
// fans out to a single client's event channel — generalized here to
// multiple concurrent subscribers per owner, since a user may have more
// than one browser tab open on the same project.
type ProgressBroadcaster struct {
	mu          sync.Mutex
	subscribers map[string][]chan ProgressEvent
}

func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{subscribers: make(map[string][]chan ProgressEvent)}
}

// Subscribe registers a new listener for ownerID. unsubscribe must be
// called once the caller stops reading from the returned channel.
func (b *ProgressBroadcaster) Subscribe(ownerID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 8)
	b.mu.Lock()
	b.subscribers[ownerID] = append(b.subscribers[ownerID], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[ownerID]
		for i, existing := range subs {
			if existing == ch {
				b.subscribers[ownerID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, unsubscribe
}

// Publish delivers ev to every current subscriber of ownerID. Slow
// subscribers are skipped rather than blocking the generation job;
// progress is best-effort, the persisted version row remains the
// authoritative status.
func (b *ProgressBroadcaster) Publish(ownerID string, ev ProgressEvent) {
	b.mu.Lock()
	subs := append([]chan ProgressEvent{}, b.subscribers[ownerID]...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
