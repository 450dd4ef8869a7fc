// Package domain содержит основные сущности системы Foreman.
//
// Сущности:
//   - Runner — зарегистрированный агент, которому адресуются orders
//   - Order — единица работы, запрошенная у runner'а
//   - Evidence — сырой захваченный вывод выполнения order
//   - Facts — структурированные наблюдения, извлечённые из вывода
//
// Runner ссылается своими Orders/Evidence/Facts (one-to-many) и держит
// только слабую обратную ссылку (FactsRef) на последнюю запись Facts.
package domain
