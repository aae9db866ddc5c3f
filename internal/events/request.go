package events

import "time"

// DefaultRequestTimeout bounds how long a request waits for its response
// event before giving up.
const DefaultRequestTimeout = time.Second

// RequestAndWait publishes a request event and waits for the first event of
// the response type, the bus's request/response idiom. The one-shot subscriber
// is installed before the request goes out, so a synchronous responder cannot
// race the reply past the caller. Returns the zero value and false on timeout
// or when the response has an unexpected concrete type.
func RequestAndWait[T Event](bus *Bus, request Event, responseType Type, timeout time.Duration) (T, bool) {
	var zero T
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	reply := make(chan Event, 1)
	id := bus.Subscribe(responseType, "request_waiter", func(event Event) {
		select {
		case reply <- event:
		default:
		}
	})
	defer bus.Unsubscribe(responseType, id)

	bus.Publish(request)

	select {
	case event := <-reply:
		typed, ok := event.(T)
		if !ok {
			return zero, false
		}
		return typed, true
	case <-time.After(timeout):
		return zero, false
	}
}
