package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"idl-verifier-sol/internal/logic/core"
)

// PublishRun 将一轮验证结果以 JSON 发布到结果 topic，并等待 broker ack。
// 超时或投递失败返回 error，由调用方决定降级（结果本身已在内存/历史中）。
func PublishRun(ctx context.Context, producer *kafka.Producer, topic string, run *core.VerificationRun, timeout time.Duration) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return publish(ctx, producer, topic, payload, timeout)
}

func publish(ctx context.Context, producer *kafka.Producer, topic string, payload []byte, timeout time.Duration) error {
	delivery := make(chan kafka.Event, 1)

	err := producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Value: payload,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-delivery:
		msg, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", ev)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("delivery timeout after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
