package mqtt

import (
	"fmt"
)

// Subscribe registers handler for messages matching filter. Filters may
// use + and # wildcards. The subscription is restored after a reconnect
// and dropped again if the broker refuses it.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subscriptions[filter] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := await(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		c.forget(filter)
		return err
	}
	return nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(filter string) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(filter)
	return await(c.client.Unsubscribe(filter), defaultPublishTimeout, ErrUnsubscribeFailed)
}

func (c *Client) forget(filter string) {
	c.mu.Lock()
	delete(c.subscriptions, filter)
	c.mu.Unlock()
}

// HasSubscription reports whether filter is tracked. Exact match only.
func (c *Client) HasSubscription(filter string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[filter]
	return ok
}
