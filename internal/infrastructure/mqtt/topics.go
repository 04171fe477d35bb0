package mqtt

import (
	"fmt"
	"strings"
)

// ValidateTopic checks a concrete publish topic: non-empty, no wildcards,
// no NUL bytes.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return fmt.Errorf("%w: %q contains wildcard or NUL", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateFilter checks a subscription filter. + must fill a whole level
// and # must be the whole final level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsRune(filter, '\x00') {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidTopic, filter)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "+":
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q has # before the last level", ErrInvalidTopic, filter)
			}
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: %q has a partial-level wildcard", ErrInvalidTopic, filter)
		}
	}
	return nil
}

// Match reports whether topic matches filter.
func Match(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
