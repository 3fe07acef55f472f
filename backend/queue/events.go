package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"

	"github.com/jghoshh/trailhead/backend/storage/cache"
	persistent "github.com/jghoshh/trailhead/backend/storage/persistent"
	"github.com/jghoshh/trailhead/models"
)

// globalCount is used by the round robin algorithm that assigns producers
// to outgoing events.
var globalCount int

// dedupeTTL bounds how long a processed event id is remembered. The stream
// is at-least-once; the cache mark keeps redelivered events from landing in
// the analytics log twice.
const dedupeTTL = 24 * time.Hour

// EventProducerFactory creates new EventProducer instances.
type EventProducerFactory struct{}

// EventConsumerFactory creates new EventConsumer instances. Consumers need
// the cache for dedupe marks and the persistent store to append events.
type EventConsumerFactory struct {
	Cache storage.CacheInterface
	Store persistent.StorageInterface
}

// EventProducer publishes serialized analytics events to the queue.
type EventProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
}

// EventConsumer drains the queue into the analytics collection.
type EventConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
	cache   storage.CacheInterface
	store   persistent.StorageInterface
}

func (f *EventProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &EventProducer{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

func (f *EventConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	return &EventConsumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		cache:   f.Cache,
		store:   f.Store,
	}, nil
}

// Publish sends one serialized event to the queue.
func (ep *EventProducer) Publish(body []byte) error {
	err := ep.channel.Publish(
		"",            // exchange
		ep.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Consume reads events off the queue and appends them to the analytics log.
// Each event id is checked against the cache first so a redelivered message
// is acked without a second insert. Transient failures nack with requeue;
// nothing here ever surfaces to a user.
func (ec *EventConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := ec.channel.Consume(
		ec.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:
				if !ok {
					return
				}

				event := &models.AnalyticsEvent{}
				if err := json.Unmarshal(d.Body, event); err != nil {
					log.Printf("failed to unmarshal analytics event: %v", err)
					d.Nack(false, false) // malformed, drop
					continue
				}

				processed, err := ec.cache.Get(ctx, "event_"+event.ID)
				if err != nil {
					if err.Error() != "key does not exist" {
						log.Printf("error checking cache: %v", err)
						d.Nack(false, true)
						continue
					}
				}

				if processed != nil {
					d.Ack(false)
					continue
				}

				if err := ec.store.AppendEvent(ctx, event); err != nil {
					log.Printf("failed to append analytics event: %v", err)
					d.Nack(false, true)
				} else {
					d.Ack(false)
					if err := ec.cache.Set(ctx, "event_"+event.ID, true, dedupeTTL); err != nil {
						log.Printf("failed to set key in cache: %v", err)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

// BuildEventQueue initializes the analytics event queue with the given
// number of producers and consumers.
func BuildEventQueue(rabbitMQURL string, numProducers, numConsumers int, eventCache storage.CacheInterface, store persistent.StorageInterface) *Queue {
	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &EventProducerFactory{}
	}

	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &EventConsumerFactory{Cache: eventCache, Store: store}
	}

	return InitQueue(rabbitMQURL, "analyticsEvents", prodFactories, consFactories)
}

// InitEventCache initializes the cache used for event dedupe marks.
func InitEventCache(url string) storage.CacheInterface {
	c, err := storage.NewCache(url)
	if err != nil {
		log.Fatalf("Error connecting to cache: %v", err)
	}
	return c
}

// ProcessEvent serializes an analytics event and publishes it onto the
// queue, choosing a producer round-robin.
func ProcessEvent(event *models.AnalyticsEvent, eventQueue *Queue) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.New("failed to marshal analytics event: " + err.Error())
	}

	producerCount := len(eventQueue.Producers)
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	producer := eventQueue.Producers[globalCount%producerCount]
	globalCount++

	if err := producer.Publish(body); err != nil {
		return errors.New("failed to publish analytics event: " + err.Error())
	}

	return nil
}
