package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// publisher and publishResult narrow the Pub/Sub types so tests can fake them.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

func gcpPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if r := g.p.Publish(ctx, msg); r != nil {
		return r
	}
	return nil
}
