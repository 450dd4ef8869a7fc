// Package executor выполняет orders вне полосы запроса, который их создал.
//
// Executor вызывается ровно один раз на каждый новый order и отвечает за:
//   - Перевод order в running
//   - Прогон набора проверок (пакет checks)
//   - Сохранение Evidence с захваченным выводом
//   - Перевод order в терминальный статус (succeeded/failed)
//   - Извлечение facts из trailer-строк (пакет trailer) и сохранение Facts
//   - Обновление liveness и facts-указателя runner'а
//
// Самая важная гарантия корректности: запись терминального статуса
// выполняется безусловно. Какая бы ступень ни упала, order никогда
// не остаётся висеть в running — верхнеуровневая страховка переводит
// его в failed с sentinel exit-кодом 999.
package executor
