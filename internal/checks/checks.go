// Package checks выполняет набор проверок для order и синтезирует
// захватываемый вывод.
//
// Эталонный набор: round-trip записи/удаления файла (обязательная
// проверка) плюс проба каждого внешнего инструмента из фиксированного
// списка (инструмент запускается с version-флагом, фиксируется нулевой
// exit-код). Проверки независимы: падение одной не прерывает остальные.
//
// Общий успех определяется только filesystem-проверкой — она является
// предусловием для захвата evidence и facts. Остальные проверки
// advisory: их булев результат фиксируется, но на успех не влияет.
package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Маркеры trailer-строк в синтезируемом stdout.
const (
	MarkerOrderResult   = "ORDER_RESULT_JSON"
	MarkerPlatformFacts = "PLATFORM_FACTS_JSON"
)

// CheckFilesystem — ключ обязательной проверки файловой системы.
const CheckFilesystem = "filesystem_ok"

// defaultProbeTimeout — wall-clock таймаут одной пробы инструмента.
// Зависший сабпроцесс не должен держать выполнение order вечно.
const defaultProbeTimeout = 10 * time.Second

// ToolProbe — проба одного внешнего инструмента.
type ToolProbe struct {
	// Key — ключ результата в checks-маппинге, например "docker_ok".
	Key string

	// Label — имя для человекочитаемой строки вывода.
	Label string

	// Command и Args — запускаемая команда с version/info флагом.
	Command string
	Args    []string
}

// DefaultProbes возвращает эталонный список проб инструментов.
func DefaultProbes() []ToolProbe {
	return []ToolProbe{
		{Key: "docker_ok", Label: "docker", Command: "docker", Args: []string{"--version"}},
		{Key: "compose_ok", Label: "compose", Command: "docker-compose", Args: []string{"--version"}},
	}
}

// Report — результат прогона всех проверок.
type Report struct {
	// Checks — результат каждой проверки (имя → прошла).
	Checks map[string]bool

	// Success — общий успех (равен Checks[CheckFilesystem]).
	Success bool

	// ExitCode — 0 при успехе, 1 иначе.
	ExitCode int

	// Stdout — синтезированный нарратив с двумя trailer-строками.
	Stdout string

	// Stderr — конкатенация stderr всех сабпроцессов-проб.
	Stderr string

	// CheckedAt — момент прогона.
	CheckedAt time.Time
}

// Runner прогоняет проверки.
type Runner struct {
	tempDir string
	probes  []ToolProbe
	timeout time.Duration
	now     func() time.Time
}

// Config — конфигурация Runner.
type Config struct {
	// TempDir — каталог для filesystem-проверки (default: os.TempDir()).
	TempDir string

	// Probes — список проб (default: DefaultProbes()).
	Probes []ToolProbe

	// ProbeTimeout — таймаут одной пробы (default: 10s).
	ProbeTimeout time.Duration

	// Now — источник времени (default: time.Now).
	Now func() time.Time
}

// New создаёт Runner.
func New(cfg Config) *Runner {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	probes := cfg.Probes
	if probes == nil {
		probes = DefaultProbes()
	}

	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{tempDir: tempDir, probes: probes, timeout: timeout, now: now}
}

// Run выполняет все настроенные проверки для order указанного типа.
// Все проверки выполняются всегда; ошибок не возвращает — каждая
// проверка вносит булев исход в отчёт.
func (r *Runner) Run(ctx context.Context, orderType string) *Report {
	checks := make(map[string]bool, len(r.probes)+1)

	var narrative strings.Builder
	var stderr strings.Builder

	// 1. Обязательная проверка: запись и удаление временного файла.
	fsOK := r.checkFilesystem()
	checks[CheckFilesystem] = fsOK
	fmt.Fprintf(&narrative, "Checking filesystem... %s\n", okFail(fsOK))

	// 2. Advisory-пробы инструментов. Независимы друг от друга.
	for _, probe := range r.probes {
		out, errOut, ok := r.runProbe(ctx, probe)
		checks[probe.Key] = ok
		fmt.Fprintf(&narrative, "Checking %s... %s (%s)\n", probe.Label, okFail(ok), firstLine(out))
		stderr.WriteString(errOut)
	}

	success := checks[CheckFilesystem]
	exitCode := 0
	if !success {
		exitCode = 1
	}

	checkedAt := r.now().UTC()

	// 3. Trailer-строки для машинного разбора.
	resultJSON, _ := json.Marshal(orderResult{
		Success:   success,
		Type:      orderType,
		Checks:    checks,
		Timestamp: checkedAt.Format(time.RFC3339),
	})
	factsJSON, _ := json.Marshal(platformFacts{
		Component: "runner",
		Checks:    checks,
	})

	fmt.Fprintf(&narrative, "\n%s: %s\n", MarkerOrderResult, resultJSON)
	fmt.Fprintf(&narrative, "%s: %s\n", MarkerPlatformFacts, factsJSON)

	return &Report{
		Checks:    checks,
		Success:   success,
		ExitCode:  exitCode,
		Stdout:    narrative.String(),
		Stderr:    stderr.String(),
		CheckedAt: checkedAt,
	}
}

// orderResult — форма ORDER_RESULT_JSON.
type orderResult struct {
	Success   bool            `json:"success"`
	Type      string          `json:"type"`
	Checks    map[string]bool `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

// platformFacts — форма PLATFORM_FACTS_JSON.
type platformFacts struct {
	Component string          `json:"component"`
	Checks    map[string]bool `json:"checks"`
}

// checkFilesystem выполняет round-trip записи и удаления временного файла.
func (r *Runner) checkFilesystem() bool {
	f, err := os.CreateTemp(r.tempDir, "foreman_check_*.txt")
	if err != nil {
		return false
	}
	name := f.Name()

	if _, err := f.WriteString("ok"); err != nil {
		f.Close()
		os.Remove(name)
		return false
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return false
	}
	return os.Remove(name) == nil
}

// runProbe запускает одну пробу инструмента с таймаутом.
// Возвращает stdout, stderr и признак нулевого exit-кода.
func (r *Runner) runProbe(ctx context.Context, probe ToolProbe) (string, string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, probe.Command, probe.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err == nil
}

func okFail(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

// firstLine возвращает первую непустую строку вывода пробы
// (version-баннер инструмента) для нарратива.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
