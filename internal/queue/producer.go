package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/segmentio/kafka-go"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// Producer publishes order confirmations to the notifications topic.
// It satisfies the checkout coordinator's Notifier interface; failures
// are returned to the caller, which logs and ignores them — a lost
// confirmation email never blocks a sale.
type Producer struct {
    writer *kafka.Writer
}

// NewProducer builds a producer for the given brokers and topic.
// Returns nil when no brokers are configured; the coordinator treats a
// nil notifier as "notifications disabled".
func NewProducer(brokers []string, topic string) *Producer {
    if len(brokers) == 0 {
        return nil
    }
    return &Producer{
        writer: &kafka.Writer{
            Addr:         kafka.TCP(brokers...),
            Topic:        topic,
            Balancer:     &kafka.LeastBytes{},
            BatchTimeout: 50 * time.Millisecond,
            RequiredAcks: kafka.RequireOne,
        },
    }
}

// PublishOrderConfirmed emits one OrderConfirmedEvent keyed by order id.
func (p *Producer) PublishOrderConfirmed(ctx context.Context, o *model.Order) error {
    ev := OrderConfirmedEvent{
        OrderID:       o.ID,
        OrderNumber:   o.OrderNumber,
        EventID:       o.EventID,
        SeatIDs:       o.SeatIDs,
        CustomerEmail: o.Customer.Email,
        CustomerName:  strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName),
        TotalCents:    o.TotalCents,
        TicketIDs:     o.TicketIDs,
        ConfirmedAt:   o.UpdatedAt.UTC().Format(time.RFC3339),
    }
    data, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal order confirmation: %w", err)
    }
    return p.writer.WriteMessages(ctx, kafka.Message{
        Key:   []byte(o.ID),
        Value: data,
        Time:  time.Now(),
    })
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
    if p == nil {
        return nil
    }
    return p.writer.Close()
}
