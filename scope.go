package export

import "sync"

// slotKey addresses the destruction slot inside a ConsumerContext.
type slotKey struct{}

// DestructionSlot is the call-scoped return channel through which a
// consumer-scope implementation hands a destruction callback back to the
// decorator that initiated the acquisition. Each Acquire call arms a fresh
// slot, so concurrent acquisitions never share one.
type DestructionSlot struct {
	mu       sync.Mutex
	armed    bool
	callback func()
}

func (s *DestructionSlot) arm() {
	s.mu.Lock()
	s.armed = true
	s.callback = nil
	s.mu.Unlock()
}

// disarm clears the slot and returns whatever callback was offered while it
// was armed.
func (s *DestructionSlot) disarm() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb := s.callback
	s.armed = false
	s.callback = nil
	return cb
}

func (s *DestructionSlot) offer(cb func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return false
	}
	s.callback = cb
	return true
}

// OfferDestructionCallback hands a destruction callback for the instance
// being resolved back to the acquisition in flight. Consumer-scope
// implementations call this from inside Container.Resolve. Returns false
// when no scoped acquisition armed the current context, in which case the
// caller owns the teardown itself.
func OfferDestructionCallback(ctx *ConsumerContext, cb func()) bool {
	if ctx == nil || cb == nil {
		return false
	}
	slot, ok := ctx.Value(slotKey{}).(*DestructionSlot)
	if !ok {
		return false
	}
	return slot.offer(cb)
}

// scopedFactory decorates a ServiceFactory for consumer-scoped targets: it
// captures the per-scope destruction callback during Acquire and fires it
// exactly once after the matching Release.
type scopedFactory struct {
	inner ServiceFactory

	mu        sync.Mutex
	callbacks map[string]func()
}

func newScopedFactory(inner ServiceFactory) *scopedFactory {
	return &scopedFactory{
		inner:     inner,
		callbacks: make(map[string]func()),
	}
}

func (f *scopedFactory) Acquire(ctx *ConsumerContext) (interface{}, error) {
	slot := &DestructionSlot{}
	slot.arm()

	// The slot travels with the context, not with the factory, so
	// concurrent acquisitions by different consumers cannot
	// cross-contaminate captured callbacks.
	instance, err := f.inner.Acquire(ctx.WithValue(slotKey{}, slot))

	// Always drain the slot, also when resolution failed.
	cb := slot.disarm()
	if err != nil {
		if cb != nil {
			log.Debug("discarding destruction callback captured during failed acquisition")
		}
		return nil, err
	}

	if cb != nil {
		f.mu.Lock()
		f.callbacks[ctx.ConsumerID()] = cb
		f.mu.Unlock()
	}
	return instance, nil
}

// Release delegates first, then fires the callback retained for this
// consumer. The callback is keyed by consumer rather than instance, so a
// provider substituting another object as itself does not detach it.
func (f *scopedFactory) Release(ctx *ConsumerContext, instance interface{}) {
	f.inner.Release(ctx, instance)

	f.mu.Lock()
	cb := f.callbacks[ctx.ConsumerID()]
	delete(f.callbacks, ctx.ConsumerID())
	f.mu.Unlock()

	if cb != nil {
		cb()
	}
}
