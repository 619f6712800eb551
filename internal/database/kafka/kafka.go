package kafka

import (
	"Mnemo_1.0/internal/config"
	"log"

	"github.com/segmentio/kafka-go"
)

// NewReader 创建一个属于消费组的 Kafka Reader。
// 使用消费组而不是固定分区，便于水平扩展消费者实例。
func NewReader(cfg *config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // 手动提交位点
		StartOffset:    kafka.FirstOffset,
	})
}

// CloseReader 安全地关闭 Kafka Reader。
func CloseReader(r *kafka.Reader) {
	if r == nil {
		return
	}
	if err := r.Close(); err != nil {
		log.Printf("⚠️ 关闭 Kafka Reader 时出错: %v", err)
	}
}
