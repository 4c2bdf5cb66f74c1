package job

import "sync"

// notifier fans out store-change notifications. Callbacks run outside the
// lock so a subscriber may read the store from inside its callback.
type notifier struct {
	mu   sync.Mutex
	subs []func()
}

func (n *notifier) Subscribe(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *notifier) notify() {
	n.mu.Lock()
	subs := append([]func(){}, n.subs...)
	n.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
