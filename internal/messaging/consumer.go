package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// --- ClipResultProcessor ---

// ClipResultProcessor обрабатывает результаты подготовки клипов.
// Вынесен в отдельную структуру для тестируемости.
type ClipResultProcessor struct {
	sceneRepo repository.SceneRepository
	db        repository.DBTX
}

// NewClipResultProcessor создает новый экземпляр ClipResultProcessor.
func NewClipResultProcessor(sceneRepo repository.SceneRepository, db repository.DBTX) *ClipResultProcessor {
	return &ClipResultProcessor{
		sceneRepo: sceneRepo,
		db:        db,
	}
}

// Process обрабатывает один результат подготовки клипа.
// Возвращает ошибку только при невозможности обработать сообщение.
func (p *ClipResultProcessor) Process(ctx context.Context, body []byte) error {
	var result ClipResultPayload
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("ошибка десериализации результата подготовки клипа: %w", err)
	}

	sceneID, err := uuid.Parse(result.SceneID)
	if err != nil {
		return fmt.Errorf("невалидный SceneID '%s' в результате задачи %s: %w", result.SceneID, result.TaskID, err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch result.Status {
	case ClipResultStatusSuccess:
		if result.TrimmedVideoURL == "" {
			return fmt.Errorf("результат задачи %s: success без trimmed_video_url", result.TaskID)
		}
		if err := p.sceneRepo.SetTrimmedVideoURL(dbCtx, p.db, sceneID, result.TrimmedVideoURL); err != nil {
			return fmt.Errorf("ошибка сохранения подготовленного клипа для сцены %s: %w", sceneID, err)
		}
		log.Printf("[ClipResultProcessor][TaskID: %s] Подготовленный клип сохранен для сцены %s", result.TaskID, sceneID)
	case ClipResultStatusError:
		// Оставляем trimmed_video_url пустым: при показе сцены используется исходный клип.
		log.Printf("[ClipResultProcessor][TaskID: %s] Воркер не смог подготовить клип для сцены %s: %s",
			result.TaskID, sceneID, result.ErrorDetails)
	default:
		return fmt.Errorf("неизвестный статус результата '%s' в задаче %s", result.Status, result.TaskID)
	}

	return nil
}

// --- ClipResultConsumer ---

// ClipResultConsumer слушает очередь результатов подготовки клипов.
type ClipResultConsumer struct {
	conn      *amqp.Connection
	processor *ClipResultProcessor
	queueName string
	stopCh    chan struct{}
}

// NewClipResultConsumer создает новый консьюмер результатов.
func NewClipResultConsumer(conn *amqp.Connection, processor *ClipResultProcessor, queueName string) (*ClipResultConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("clip result consumer: соединение RabbitMQ не задано")
	}
	return &ClipResultConsumer{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		stopCh:    make(chan struct{}),
	}, nil
}

// StartConsuming начинает прослушивание очереди результатов. Блокирующий вызов.
func (c *ClipResultConsumer) StartConsuming() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: не удалось открыть канал RabbitMQ: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось объявить очередь '%s': %w", c.queueName, err)
	}

	err = ch.Qos(1, 0, false) // Обрабатываем по одному сообщению
	if err != nil {
		return fmt.Errorf("consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"clip-result-consumer", // consumer tag
		false,                  // auto-ack = false
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,                    // args
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось зарегистрировать консьюмера: %w", err)
	}
	log.Printf("Consumer: запущен, ожидание результатов из очереди '%s'...", q.Name)

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				log.Println("Consumer: канал сообщений RabbitMQ закрыт")
				return nil
			}

			if err := c.processor.Process(context.Background(), d.Body); err != nil {
				log.Printf("Consumer: ошибка обработки результата (DeliveryTag: %d): %v", d.DeliveryTag, err)
				// Некорректное сообщение повторно не обрабатываем
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)

		case <-c.stopCh:
			log.Println("Consumer: получен сигнал остановки")
			return nil
		}
	}
}

// Stop останавливает консьюмер.
func (c *ClipResultConsumer) Stop() {
	close(c.stopCh)
}
