package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClipTaskPublisher defines the interface for publishing clip preparation tasks.
type ClipTaskPublisher interface {
	PublishClipTask(ctx context.Context, payload ClipTaskPayload) error
}

// rabbitMQClipTaskPublisher implements ClipTaskPublisher for RabbitMQ.
type rabbitMQClipTaskPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQClipTaskPublisher creates a new instance of ClipTaskPublisher.
// Паблишер объявляет очередь сам, чтобы не зависеть от порядка запуска сервисов.
// Параметры очереди должны совпадать с теми, что у clip-preparation воркера.
func NewRabbitMQClipTaskPublisher(conn *amqp.Connection, queueName string) (ClipTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("clip task publisher: не удалось открыть канал: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		log.Printf("ClipTaskPublisher ERROR: Не удалось объявить очередь '%s': %v", queueName, err)
		ch.Close()
		return nil, fmt.Errorf("clip task publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}

	return &rabbitMQClipTaskPublisher{channel: ch, queueName: queueName}, nil
}

// PublishClipTask сериализует задачу в JSON и публикует в очередь.
func (p *rabbitMQClipTaskPublisher) PublishClipTask(ctx context.Context, payload ClipTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("clip task publisher: ошибка маршалинга задачи %s: %w", payload.TaskID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("clip task publisher: ошибка публикации задачи %s: %w", payload.TaskID, err)
	}

	log.Printf("[ClipTaskPublisher] Задача подготовки клипа отправлена: TaskID=%s, SceneID=%s", payload.TaskID, payload.SceneID)
	return nil
}
