package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/IBM/sarama"
)

// Kafka is the broker-backed Bus implementation. One sync producer is shared
// by all publishers in the process; each Subscribe call creates its own
// sarama consumer group.
type Kafka struct {
	brokers  []string
	producer sarama.SyncProducer
	policy   FailurePolicy

	mu     sync.Mutex
	groups []*kafkaGroup
}

type kafkaGroup struct {
	cg      sarama.ConsumerGroup
	topic   string
	groupID string
	handler Handler
	policy  FailurePolicy
}

func NewKafka(brokers []string, policy FailurePolicy) (*Kafka, error) {
	if policy == nil {
		policy = LogAndDrop{}
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		log.Printf("Failed to create Sarama sync producer: %v", err)
		return nil, err
	}

	return &Kafka{
		brokers:  brokers,
		producer: producer,
		policy:   policy,
	}, nil
}

// Publish sends the payload as JSON. No partition key is supplied, so two
// events for the same order are not guaranteed to reach a consumer group in
// emission order.
func (k *Kafka) Publish(_ context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		log.Printf("Failed to send message to topic %s: %v", topic, err)
	}
	return err
}

func (k *Kafka) Subscribe(topic, group string, h Handler) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_1_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRange()

	cg, err := sarama.NewConsumerGroup(k.brokers, group, config)
	if err != nil {
		log.Printf("Error creating consumer group client (groupID: %s): %v", group, err)
		return err
	}

	k.mu.Lock()
	k.groups = append(k.groups, &kafkaGroup{
		cg:      cg,
		topic:   topic,
		groupID: group,
		handler: h,
		policy:  k.policy,
	})
	k.mu.Unlock()
	return nil
}

// Run starts the consumption loop of every registered consumer group and
// blocks until ctx is cancelled.
func (k *Kafka) Run(ctx context.Context) {
	k.mu.Lock()
	groups := make([]*kafkaGroup, len(k.groups))
	copy(groups, k.groups)
	k.mu.Unlock()

	var wg sync.WaitGroup
	for _, g := range groups {
		wg.Add(1)
		go g.run(ctx, &wg)
	}
	wg.Wait()
}

func (g *kafkaGroup) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	session := &groupSession{
		topic:   g.topic,
		groupID: g.groupID,
		handler: g.handler,
		policy:  g.policy,
		baseCtx: ctx,
	}

	log.Printf("Consumer group '%s' starting consumption loop for topic '%s'", g.groupID, g.topic)
	for {
		// Consume waits for rebalances and assigns partitions; ConsumeClaim
		// is called for each assigned partition.
		err := g.cg.Consume(ctx, []string{g.topic}, session)
		if err != nil {
			log.Printf("Error from consumer group '%s': %v", g.groupID, err)
		}
		if ctx.Err() != nil {
			log.Printf("Context cancelled for consumer group '%s'. Exiting loop.", g.groupID)
			return
		}
		log.Printf("Consumer group '%s' encountered an issue, will re-attempt consumption...", g.groupID)
	}
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, g := range k.groups {
		if err := g.cg.Close(); err != nil {
			log.Printf("Error closing consumer group '%s': %v", g.groupID, err)
		}
	}
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}

// groupSession implements sarama.ConsumerGroupHandler.
type groupSession struct {
	topic   string
	groupID string
	handler Handler
	policy  FailurePolicy
	baseCtx context.Context
}

func (s *groupSession) Setup(session sarama.ConsumerGroupSession) error {
	log.Printf("Consumer group '%s' session setup, generation %d, claims: %v",
		s.groupID, session.GenerationID(), session.Claims())
	return nil
}

func (s *groupSession) Cleanup(session sarama.ConsumerGroupSession) error {
	log.Printf("Consumer group '%s' session cleanup, generation %d", s.groupID, session.GenerationID())
	return nil
}

func (s *groupSession) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Printf("Starting consumer for topic '%s', partition %d", claim.Topic(), claim.Partition())

	for message := range claim.Messages() {
		env := Envelope{Topic: message.Topic, Payload: message.Value}
		if err := s.handler(s.baseCtx, env); err != nil {
			s.policy.HandleFailure(s.topic, s.groupID, env, err)
		}
		// The message is marked regardless of the handler outcome: failed
		// messages are dropped, not redelivered.
		session.MarkMessage(message, "")
	}

	log.Printf("Consumer stopped for topic '%s', partition %d", claim.Topic(), claim.Partition())
	return nil
}
