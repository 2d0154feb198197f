// Package messaging 成交事件的 Kafka 发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/stocksimulator/internal/matching/domain"
	"github.com/wyfcoding/stocksimulator/pkg/mq"
)

// KafkaTradePublisher 将成交事件发布到 Kafka
type KafkaTradePublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaTradePublisher 创建成交发布器
func NewKafkaTradePublisher(producer *mq.KafkaProducer, topic string) *KafkaTradePublisher {
	return &KafkaTradePublisher{producer: producer, topic: topic}
}

// PublishTrade 发布一笔成交，以标的代码为分区键保证同标的事件有序
func (p *KafkaTradePublisher) PublishTrade(ctx context.Context, trade *domain.Trade) error {
	return p.producer.SendMessage(ctx, p.topic, trade.Symbol, trade)
}
