// Package trailer извлекает JSON-объекты, встроенные в свободный текст.
//
// Runner'ы печатают машиночитаемые trailer-строки в конце stdout:
//
//	ORDER_RESULT_JSON: {"success":true,...}
//	PLATFORM_FACTS_JSON: {"component":"runner",...}
//
// Извлечение — best-effort поверх произвольного (в том числе обрезанного)
// вывода: ошибка парсинга трактуется как "не найдено", а не как ошибка.
// Пакет не имеет побочных эффектов и тестируется на произвольных строках.
package trailer

import (
	"encoding/json"
	"strings"
)

// Extract сканирует text построчно и ищет первую строку, содержащую
// подстроку "<marker>:". Всё после первого вхождения маркера на этой
// строке, очищенное от пробелов, должно парситься как одно JSON-значение
// (объект, массив, число, строка, bool или null).
//
// Побеждает первая совпавшая строка. Возвращает (nil, false), если
// маркер не найден или остаток строки не является валидным JSON.
func Extract(text, marker string) (any, bool) {
	needle := marker + ":"

	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, needle)
		if idx < 0 {
			continue
		}

		raw := strings.TrimSpace(line[idx+len(needle):])

		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			// Совпавшая строка с битым JSON — считаем "не найдено".
			return nil, false
		}
		return payload, true
	}

	return nil, false
}
