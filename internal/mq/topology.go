package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeRunners Exchange = "foreman.runners"
	ExchangeDLQ     Exchange = "foreman.dlq"
)

// Queues — имена очередей.
const (
	QueueRunnersHeartbeat Queue = "runners.heartbeat"
	QueueDLQHeartbeat     Queue = "dlq.heartbeat"
)

// Routing keys.
const (
	RoutingKeyHeartbeat RoutingKey = "heartbeat"
)

// SetupTopology объявляет exchanges, queues и bindings.
//
// Идемпотентно: повторное объявление с теми же параметрами безопасно.
func SetupTopology(conn *Connection) error {
	ch := conn.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}

	for _, ex := range []Exchange{ExchangeRunners, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(ex), // name
			"direct",   // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	// Некорректные heartbeat'ы уходят в DLQ для ручного разбора.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyHeartbeat),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueRunnersHeartbeat, dlqArgs},
		{QueueDLQHeartbeat, nil},
	}
	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueRunnersHeartbeat, RoutingKeyHeartbeat, ExchangeRunners},
		{QueueDLQHeartbeat, RoutingKeyHeartbeat, ExchangeDLQ},
	}
	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
