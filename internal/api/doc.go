// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (реестр, dispatcher, репозитории, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - runner_handler.go   — обработчики для /runners (регистрация, heartbeat, facts)
//   - order_handler.go    — обработчики для /orders
//   - evidence_handler.go — обработчики для /evidences
//
// API предоставляет REST endpoints для управления runner'ами, создания
// orders и чтения evidence/facts. Создание order отвечает 201, идемпотентный
// повтор по client_request_id — 200 с ранее созданным order.
package api
