package export

import (
	"context"
	"sync"
)

// ConsumerContext identifies the consumer on whose behalf a service is being
// acquired and carries call-scoped values across the factory/container
// boundary. It extends the standard context.Context with value layering so a
// decorator can thread per-acquisition state through a resolution it does not
// control.
type ConsumerContext struct {
	context.Context
	consumerID string
	values     sync.Map
}

// NewConsumerContext creates a ConsumerContext for the given consumer,
// wrapping a standard context.Context.
func NewConsumerContext(parent context.Context, consumerID string) *ConsumerContext {
	if parent == nil {
		parent = context.Background()
	}
	return &ConsumerContext{
		Context:    parent,
		consumerID: consumerID,
	}
}

// ConsumerID returns the identity of the requesting consumer.
func (c *ConsumerContext) ConsumerID() string {
	return c.consumerID
}

// WithValue returns a new ConsumerContext with the provided key-value pair.
// The new context inherits the consumer identity and all values from its
// parent.
func (c *ConsumerContext) WithValue(key, val interface{}) *ConsumerContext {
	newCtx := &ConsumerContext{
		Context:    c.Context,
		consumerID: c.consumerID,
	}
	c.values.Range(func(k, v interface{}) bool {
		newCtx.values.Store(k, v)
		return true
	})
	newCtx.values.Store(key, val)
	return newCtx
}

func (c *ConsumerContext) Value(key interface{}) interface{} {
	if c == nil {
		return nil
	}
	if val, ok := c.values.Load(key); ok {
		return val
	}
	if c.Context != nil {
		return c.Context.Value(key)
	}
	return nil
}
