package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/pkg/metrics"
	"joedb/pkg/tracing"
	"joedb/pkg/types"
)

// KafkaSource consumes a set of topics as a consumer group, inserting one
// record per message, grounded on the teacher's internal/sinks/kafka_sink.go
// for Sarama configuration (SASL/SCRAM) but
// built around ConsumerGroup instead of AsyncProducer since joedb reads
// from Kafka rather than writing to it.
type KafkaSource struct {
	cfg    types.KafkaSourceConfig
	sink   Inserter
	logger *logrus.Logger
	group  sarama.ConsumerGroup

	// Tracer wraps each partition claim's consume loop in a span when set.
	Tracer oteltrace.Tracer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewKafkaSource builds the Sarama client config (including SCRAM/SASL
// when configured) and creates a consumer group.
func NewKafkaSource(cfg types.KafkaSourceConfig, sink Inserter, logger *logrus.Logger) (*KafkaSource, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	if cfg.SASL.Enabled {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.User = cfg.SASL.Username
		saramaCfg.Net.SASL.Password = cfg.SASL.Password

		switch strings.ToUpper(cfg.SASL.Mechanism) {
		case "SCRAM-SHA-256":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			saramaCfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: SHA256}
			}
		case "SCRAM-SHA-512":
			saramaCfg.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			saramaCfg.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: SHA512}
			}
		}
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &KafkaSource{cfg: cfg, sink: sink, logger: logger, group: group}, nil
}

// Start launches the consume loop in the background; sarama reinvokes
// handler.Setup/ConsumeClaim across rebalances for as long as the loop
// keeps calling Consume.
func (ks *KafkaSource) Start(ctx context.Context) error {
	if !ks.cfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	ks.cancel = cancel

	handler := &kafkaHandler{sink: ks.sink, logger: ks.logger, tracer: ks.Tracer}

	ks.wg.Add(2)
	go func() {
		defer ks.wg.Done()
		for {
			if err := ks.group.Consume(ctx, ks.cfg.Topics, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				ks.logger.WithError(err).Warn("kafka consume error")
				metrics.ErrorsTotal.WithLabelValues("kafka", "consume").Inc()
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer ks.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-ks.group.Errors():
				if !ok {
					return
				}
				ks.logger.WithError(err).Warn("kafka consumer group error")
				metrics.ErrorsTotal.WithLabelValues("kafka", "group").Inc()
			}
		}
	}()

	metrics.SourceConnectionStatus.WithLabelValues("kafka").Set(1)
	ks.logger.WithField("topics", ks.cfg.Topics).Info("kafka source started")
	return nil
}

// Stop cancels the consume loop and closes the consumer group.
func (ks *KafkaSource) Stop() {
	if ks.cancel != nil {
		ks.cancel()
	}
	ks.wg.Wait()
	if err := ks.group.Close(); err != nil {
		ks.logger.WithError(err).Warn("error closing kafka consumer group")
	}
	metrics.SourceConnectionStatus.WithLabelValues("kafka").Set(0)
}

type kafkaHandler struct {
	sink   Inserter
	logger *logrus.Logger
	tracer oteltrace.Tracer
}

func (h *kafkaHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	if h.tracer != nil {
		tc := tracing.NewTraceableContext(context.Background(), h.tracer, "sources.kafka.read_loop")
		tc.SetAttribute("topic", claim.Topic())
		tc.SetAttribute("partition", fmt.Sprintf("%d", claim.Partition()))
		defer tc.End()
	}

	for msg := range claim.Messages() {
		rec, ok := LineToRecord(string(msg.Value))
		if ok {
			if err := h.sink.Insert("kafka", rec); err != nil {
				metrics.IngestErrorsTotal.WithLabelValues("kafka", errCode(err)).Inc()
			}
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
