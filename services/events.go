package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"connect/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	rabbitConn    *amqp.Connection
	rabbitChannel *amqp.Channel
	postExchange  = "post_events"
)

// PostEvent - событие жизненного цикла поста, публикуемое для
// внешних потребителей (нотификации, аналитика)
type PostEvent struct {
	Event     string    `json:"event"` // post_created, post_deleted, post_liked
	PostID    int64     `json:"post_id"`
	ActorID   int64     `json:"actor_id,omitempty"`
	Liked     bool      `json:"liked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InitRabbitMQ инициализирует соединение и exchange для событий.
// Брокер опционален: без него события просто не публикуются.
func InitRabbitMQ() error {
	url := ""
	if config.AppConfig != nil {
		url = config.AppConfig.Secrets.RabbitURL
	}
	if url == "" {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}

	var err error
	rabbitConn, err = amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	rabbitChannel, err = rabbitConn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := rabbitChannel.ExchangeDeclare(
		postExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ initialized successfully")
	return nil
}

// PublishPostEvent публикует событие поста best-effort: ошибка
// публикации логируется и никогда не валит запрос
func PublishPostEvent(ctx context.Context, event PostEvent) {
	if rabbitChannel == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: Failed to marshal post event: %v", err)
		return
	}
	routingKey := fmt.Sprintf("post.%s", event.Event)
	err = rabbitChannel.PublishWithContext(ctx,
		postExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		log.Printf("ERROR: Failed to publish post event %s for post %d: %v", event.Event, event.PostID, err)
	}
}

func CloseRabbitMQ() {
	if rabbitChannel != nil {
		_ = rabbitChannel.Close()
		rabbitChannel = nil
	}
	if rabbitConn != nil {
		_ = rabbitConn.Close()
		rabbitConn = nil
	}
}
