package telemetry

import "log/slog"

type Sender[T any] interface {
	Send(T) error
}

type Reader[T any] interface {
	Read() (T, bool)
}

// Fanout sends every message to all of its senders. The first error is
// returned after every sender has been tried.
type Fanout[T any] []Sender[T]

func (f Fanout[T]) Send(v T) error {
	var first error
	for _, s := range f {
		if err := s.Send(v); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Debug("fanout send failed", "error", err)
			}
		}
	}
	return first
}

// Merge reads from its sources in order and returns the first message found.
type Merge[T any] []Reader[T]

func (m Merge[T]) Read() (v T, ok bool) {
	for _, r := range m {
		if v, ok = r.Read(); ok {
			return v, true
		}
	}
	return v, false
}
