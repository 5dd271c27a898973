// Package notify 提供派班子系统对外协作方的具体实现：
// 基于 RabbitMQ 的通知队列和基于 Redis 的实时推送
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// QueueName 为通知消息队列的名称，api 与 notifier 两端必须一致
const QueueName = "notification_queue"

// QueueNotifier 把通知消息序列化后发布到 RabbitMQ，由 cmd/notifier 消费
type QueueNotifier struct {
	channel *amqp.Channel
}

func NewQueueNotifier(channel *amqp.Channel) *QueueNotifier {
	return &QueueNotifier{channel: channel}
}

func (n *QueueNotifier) Notify(ctx context.Context, msg *domain.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return n.channel.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// RedisPublisher 向员工的专属频道发布实时事件
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// WorkerChannel 返回员工实时事件的频道名
func WorkerChannel(workerID int64) string {
	return fmt.Sprintf("worker:%d", workerID)
}

func (p *RedisPublisher) PublishToWorker(ctx context.Context, workerID int64, event string, payload any) error {
	body, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, WorkerChannel(workerID), body).Err()
}
