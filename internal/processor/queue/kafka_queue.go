package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"content-fetch/internal/utils"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Seeds         []string
	ConsumerGroup string
	Topic         string
	User          string
	Password      string
}

// KafkaQueue moves raw records between a topic and a pair of channels. A queue built without a consumer
// group only produces.
type KafkaQueue struct {
	logger       *zap.SugaredLogger
	KafkaClient  *kgo.Client
	topic        string
	consumes     bool
	consumerChan chan []byte
	producerChan chan []byte
	warnAfter    time.Duration

	producing    atomic.Bool
	producerDone chan struct{}
	closeOnce    sync.Once
}

func NewKafkaQueue(logger *zap.SugaredLogger, cfg *KafkaConfig) (*KafkaQueue, error) {
	tracer := kotel.NewTracer()
	kotelService := kotel.NewKotel(kotel.WithTracer(tracer))

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Seeds...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.WithHooks(kotelService.Hooks()...),
	}

	if cfg.ConsumerGroup != "" {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.ConsumerGroup),
			kgo.ConsumeTopics(cfg.Topic),
			kgo.DisableAutoCommit(),
		)
	}

	if cfg.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{User: cfg.User, Pass: cfg.Password}.AsMechanism()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return &KafkaQueue{
		logger:       logger,
		KafkaClient:  client,
		topic:        cfg.Topic,
		consumes:     cfg.ConsumerGroup != "",
		consumerChan: make(chan []byte, ChannelBufferLimit),
		producerChan: make(chan []byte, ChannelBufferLimit),
		warnAfter:    queueTimeout,
		producerDone: make(chan struct{}),
	}, nil
}

func (q *KafkaQueue) GetProducerChan() chan<- []byte {
	return q.producerChan
}

func (q *KafkaQueue) GetConsumerChan() <-chan []byte {
	return q.consumerChan
}

func (q *KafkaQueue) StartQueueConsumer(ctx context.Context) {
	if !q.consumes {
		q.logger.Warnw("Queue has no consumer group, consumer not started", "topic", q.topic)
		return
	}
	defer close(q.consumerChan)

	timer := time.NewTimer(queueTimeout)
	utils.DrainTimer(timer)

	for ctx.Err() == nil {
		fetches := q.getFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				q.logger.Warnw("Fetch error", "topic", topic, "partition", partition, "err", err)
			}
		})

		iter := fetches.RecordIter()

		var recordsToCommit []*kgo.Record

		for !iter.Done() {
			record := iter.Next()

			if record == nil {
				continue
			}

			if !q.handOff(ctx, timer, record) {
				q.commitRecords(recordsToCommit...)
				return
			}

			recordsToCommit = append(recordsToCommit, record)
		}

		q.commitRecords(recordsToCommit...)
	}
}

// handOff blocks until the record is on the consumer channel or ctx ends. A slow consumer is logged every
// warnAfter but the record is never dropped, so only handed off records get committed.
func (q *KafkaQueue) handOff(ctx context.Context, timer *time.Timer, record *kgo.Record) bool {
	for {
		timer.Reset(q.warnAfter)

		select {
		case q.consumerChan <- record.Value:
			utils.DrainTimer(timer)
			return true
		case <-timer.C:
			q.logger.Warnw("Slow consumer, record still waiting", "offset", record.Offset, "partition", record.Partition)
		case <-ctx.Done():
			utils.DrainTimer(timer)
			return false
		}
	}
}

func (q *KafkaQueue) getFetches(ctx context.Context) kgo.Fetches {
	ctx, cancel := context.WithTimeout(ctx, SingleRequestTimeout)
	defer cancel()

	return q.KafkaClient.PollFetches(ctx)
}

func (q *KafkaQueue) commitRecords(records ...*kgo.Record) {
	if len(records) == 0 {
		return
	}

	commitCtx, commitCancel := context.WithTimeout(context.Background(), SingleRequestTimeout)
	defer commitCancel()

	err := q.KafkaClient.CommitRecords(commitCtx, records...)
	if err != nil {
		q.logger.Warnw("Failed to commit records in kafka", "count", len(records), "err", err)
	}
}

// StartQueueProducer batches items from the producer channel until the channel is closed by CloseQueue.
func (q *KafkaQueue) StartQueueProducer(ctx context.Context) {
	q.producing.Store(true)
	defer close(q.producerDone)

	items := make([][]byte, 0, ChannelBufferLimit)
	flushTicker := time.NewTicker(tickerTimeout)
	defer flushTicker.Stop()

	flush := func() {
		if len(items) == 0 {
			return
		}
		q.logger.Debugw("Producing items", "count", len(items))
		q.sendToKafka(items)
		items = make([][]byte, 0, ChannelBufferLimit)
	}

	for {
		select {
		case item, ok := <-q.producerChan:
			if !ok {
				flush()
				return
			}
			items = append(items, item)
			if len(items) >= ChannelBufferLimit {
				flush()
			}
		case <-flushTicker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func (q *KafkaQueue) sendToKafka(items [][]byte) {
	records := make([]*kgo.Record, 0, len(items))

	for _, item := range items {
		records = append(records, &kgo.Record{
			Topic: q.topic,
			Value: item,
		})
	}

	q.produceRecords(records)
}

func (q *KafkaQueue) produceRecords(records []*kgo.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), SingleRequestTimeout)
	defer cancel()

	var wg sync.WaitGroup

	for _, record := range records {
		wg.Add(1)
		q.KafkaClient.Produce(ctx, record, func(r *kgo.Record, err error) {
			defer wg.Done()
			if err != nil {
				q.logger.Warnw("Failed to produce record in kafka", "topic", r.Topic, "err", err)
			}
		})
	}

	wg.Wait()

	q.logger.Debugw("Produced items", "count", len(records))
}

// CloseQueue stops accepting items, waits for the producer to flush and closes the client.
func (q *KafkaQueue) CloseQueue(ctx context.Context) error {
	var err error
	q.closeOnce.Do(func() {
		close(q.producerChan)

		if q.producing.Load() {
			select {
			case <-q.producerDone:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		done := make(chan struct{})
		go func() {
			q.KafkaClient.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}
