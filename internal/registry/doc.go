// Package registry ведёт реестр runner'ов и их liveness.
//
// Runner — агент выполнения, на который адресуются orders. Реестр
// отвечает за регистрацию и удаление runner'ов, приём heartbeat'ов
// и чтение с вычисленным статусом online/offline.
//
// # Liveness
//
// Статус online нигде не хранится и вычисляется заново при каждом
// чтении: runner online, если now − lastSeenAt < 2×ttlSeconds.
// Отметка lastSeenAt монотонна и обновляется из двух источников:
// явных heartbeat'ов (HTTP или очередь) и самого факта выполнения
// order'а на runner'е.
//
// # Bootstrap
//
// Пустой реестр засевается локальным runner'ом по умолчанию — явным
// идемпотентным шагом при старте процесса, а не по ходу обработки
// запросов.
package registry
