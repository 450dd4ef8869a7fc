package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Foreman/internal/registry"
	"github.com/shaiso/Foreman/internal/telemetry"
)

// HeartbeatSink принимает heartbeat'ы runner'ов.
// Реализуется реестром runner'ов.
type HeartbeatSink interface {
	Heartbeat(ctx context.Context, runnerID string) (time.Time, error)
}

// HeartbeatConsumer потребляет heartbeat'ы из очереди runners.heartbeat
// и транслирует их в реестр.
//
// Heartbeat через очередь эквивалентен HTTP heartbeat'у: оба источника
// сходятся на одной монотонной отметке lastSeenAt.
type HeartbeatConsumer struct {
	consumer *Consumer
	sink     HeartbeatSink
	logger   *slog.Logger
}

// NewHeartbeatConsumer создаёт consumer heartbeat'ов.
func NewHeartbeatConsumer(conn *Connection, sink HeartbeatSink, logger *slog.Logger) *HeartbeatConsumer {
	hc := &HeartbeatConsumer{
		sink:   sink,
		logger: logger,
	}
	hc.consumer = NewConsumer(conn, logger, ConsumerConfig{
		Queue:   string(QueueRunnersHeartbeat),
		Handler: hc.handle,
	})
	return hc
}

// Start запускает потребление. Блокирует до отмены контекста.
func (hc *HeartbeatConsumer) Start(ctx context.Context) error {
	return hc.consumer.Start(ctx)
}

// Stop останавливает consumer.
func (hc *HeartbeatConsumer) Stop() {
	hc.consumer.Stop()
}

// handle обрабатывает одно heartbeat-сообщение.
func (hc *HeartbeatConsumer) handle(ctx context.Context, d *Delivery) error {
	payload, err := ParsePayload[HeartbeatPayload](&d.Message)
	if err != nil {
		return fmt.Errorf("parse heartbeat payload: %w", err)
	}
	if payload.RunnerID == "" {
		return fmt.Errorf("heartbeat without runner_id")
	}

	if _, err := hc.sink.Heartbeat(ctx, payload.RunnerID); err != nil {
		// Heartbeat незарегистрированного runner'а — не повод для requeue.
		if errors.Is(err, registry.ErrRunnerNotFound) {
			hc.logger.Warn("heartbeat from unknown runner, dropping", "runner_id", payload.RunnerID)
			return nil
		}
		return fmt.Errorf("apply heartbeat: %w", err)
	}

	telemetry.HeartbeatsReceived.WithLabelValues("mq").Inc()
	return nil
}
