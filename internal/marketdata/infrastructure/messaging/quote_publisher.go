// Package messaging 行情事件的 Kafka 发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/domain"
	"github.com/wyfcoding/stocksimulator/pkg/mq"
)

// KafkaQuotePublisher 将行情报价发布到 Kafka
type KafkaQuotePublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaQuotePublisher 创建行情发布器
func NewKafkaQuotePublisher(producer *mq.KafkaProducer, topic string) *KafkaQuotePublisher {
	return &KafkaQuotePublisher{producer: producer, topic: topic}
}

// PublishQuote 发布一条行情报价，以标的代码为分区键
func (p *KafkaQuotePublisher) PublishQuote(ctx context.Context, quote *domain.MarketQuote) error {
	return p.producer.SendMessage(ctx, p.topic, quote.Symbol, quote)
}
