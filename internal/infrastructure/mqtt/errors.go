package mqtt

import "errors"

// Sentinel errors. Operation errors wrap one of these; check with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: not connected to broker")
	ErrConnectionFailed  = errors.New("mqtt: cannot connect to broker")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: QoS must be 0, 1 or 2")

	// ErrInvalidTopic covers empty topics, wildcards in publish topics and
	// malformed wildcards in filters.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
