package telemetry

import (
	"github.com/pfeiferj/gomsgq"
	"github.com/pkg/errors"
)

const (
	DEFAULT_SEGMENT_SIZE = 10 * 1024 * 1024
	OUT_SERVICE          = "trackdOut"
	IN_SERVICE           = "trackdIn"
)

type Publisher[T any] struct {
	Pub gomsgq.MsgqPublisher
}

func (p *Publisher[T]) Send(v T) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}
	p.Pub.Send(b)
	return nil
}

func NewPublisher[T any](name string) (publisher Publisher[T], err error) {
	msgq := gomsgq.Msgq{}
	err = msgq.Init(name, DEFAULT_SEGMENT_SIZE)
	if err != nil {
		return publisher, errors.Wrapf(err, "could not open %s queue", name)
	}
	pub := gomsgq.MsgqPublisher{}
	pub.Init(msgq)

	publisher.Pub = pub
	return publisher, nil
}

type Subscriber[T any] struct {
	Sub gomsgq.MsgqSubscriber
}

// Read returns the next message, or false when nothing valid is queued.
func (s *Subscriber[T]) Read() (obj T, success bool) {
	data := s.Sub.Read()
	if len(data) == 0 {
		return obj, false
	}
	obj, err := Decode[T](data)
	if err != nil {
		return obj, false
	}
	return obj, true
}

func NewSubscriber[T any](name string, conflate bool) (subscriber Subscriber[T], err error) {
	msgq := gomsgq.Msgq{}
	err = msgq.Init(name, DEFAULT_SEGMENT_SIZE)
	if err != nil {
		return subscriber, errors.Wrapf(err, "could not open %s queue", name)
	}
	sub := gomsgq.MsgqSubscriber{}
	sub.Conflate = conflate
	sub.Init(msgq)

	subscriber.Sub = sub
	return subscriber, nil
}
