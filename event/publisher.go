package event

import (
	"fmt"
	"sync"
	"time"
)

// Publisher includes multiple topics.
type Publisher struct {
	lock   sync.RWMutex
	topics map[string]*Topic // Subscriber information.
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		topics: make(map[string]*Topic),
	}
}

// NewTopic must create a topic before you can initiate a subscription.
func (p *Publisher) NewTopic(topicName string, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, ok := p.topics[topicName]
	if ok {
		return fmt.Errorf("topic %s already create", topicName)
	}
	topic := &Topic{
		timeout:     timeout,
		subscribers: []Subscriber{},
	}

	p.topics[topicName] = topic
	return nil
}

// RegisterSubscriber registers a subscriber.
func (p *Publisher) RegisterSubscriber(topicName string, fn Subscriber) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("topic %s not create", topicName)
	}

	topic.subscribers = append(topic.subscribers, fn)
	return nil
}

// Publish post content to every subscriber of the topic, waiting for all of
// them to finish.
func (p *Publisher) Publish(topicName string, i any) error {
	p.lock.RLock()
	defer p.lock.RUnlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("topic:%s not create", topicName)
	}

	var wg sync.WaitGroup

	for _, sub := range topic.subscribers {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub(i)
		}()
	}

	wg.Wait()

	return nil
}
