// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//   - heartbeat.go  — consumer heartbeat'ов runner'ов
//
// Типы сообщений:
//   - runner.heartbeat — признак жизни runner'а
//
// Exchanges:
//   - foreman.runners — события runner'ов
//   - foreman.dlq     — dead letter queue
//
// Очередь — опциональный транспорт: control plane полностью работоспособен
// без RabbitMQ, heartbeat'ы тогда принимаются только по HTTP.
package mq
