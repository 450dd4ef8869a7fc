// Package cli реализует инструмент командной строки Foreman.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Foreman API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления runner'ами, создания orders и
// просмотра evidence/facts.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Foreman API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. SubmitOrder различает создание (201) и
// идемпотентный повтор (200).
//
//	client := cli.NewClient("http://localhost:8080")
//	runners, err := client.ListRunners()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: foreman-cli runner list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - runner:   list, register, show, remove, heartbeat, facts
//   - order:    submit, show, list
//   - evidence: list, show
//
// Каждая группа создаётся через фабричную функцию (NewRunnerCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
