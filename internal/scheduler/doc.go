// Package scheduler периодически инициирует reconcile runner'ов.
//
// По cron-расписанию (default: каждые 5 минут) scheduler создаёт
// runner.reconcile order для каждого online runner'а. Offline
// runner'ы пропускаются: им нечем выполнить order, а очередь
// queued orders на мёртвого агента только копится.
//
// # Идемпотентность
//
// Ключ идемпотентности — "{runner_id}_{due_at_unix}". Одно
// срабатывание расписания порождает не больше одного order на
// runner, сколько бы экземпляров планировщика ни работало.
//
// Leader election не реализуется: дедупликацию конкурентных
// экземпляров обеспечивает сам ключ идемпотентности.
package scheduler
