// Package dispatcher принимает orders и доводит их до выполнения.
//
// # Обзор
//
// Dispatcher — единственная точка входа для создания orders. Он отвечает за:
//
//   - Валидацию типа order и существования адресата (runner)
//   - Идемпотентность по client_request_id: повтор того же запроса
//     возвращает существующий order без побочных эффектов
//   - Постановку каждого нового order в ограниченный worker pool
//   - Polling fallback: периодический подхват queued orders, не попавших
//     в pool (переполненный backlog, рестарт процесса)
//
// # Идемпотентность
//
// Ключ идемпотентности — тройка (runner_id, type, client_request_id).
// Быстрый путь — SELECT до INSERT; гонку конкурентных дубликатов
// закрывает частичный уникальный индекс в БД: проигравший INSERT
// получает ErrAlreadyExists и возвращает победителя. new/replay
// различимы для вызывающей стороны (HTTP 201 против 200).
//
// # Worker pool
//
// Orders выполняются асинхронно относительно запроса, который их создал,
// но не fire-and-forget: фиксированное число worker-горутин потребляет
// задачи из буферизованного backlog-канала, ограничивая параллелизм
// и давление на runner'ов. Переполненный backlog не отклоняет запрос —
// order остаётся queued и подхватывается ближайшим poll'ом.
package dispatcher
