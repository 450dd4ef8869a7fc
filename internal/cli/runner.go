package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shaiso/Foreman/internal/mq"
	"github.com/spf13/cobra"
)

// NewRunnerCmd создаёт группу команд для управления runner'ами.
func NewRunnerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runner",
		Short: "Manage runners",
	}

	cmd.AddCommand(
		newRunnerListCmd(clientFn, outputFn),
		newRunnerRegisterCmd(clientFn, outputFn),
		newRunnerShowCmd(clientFn, outputFn),
		newRunnerRemoveCmd(clientFn, outputFn),
		newRunnerHeartbeatCmd(clientFn, outputFn),
		newRunnerFactsCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunnerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runners",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runners, err := client.ListRunners()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ONLINE", "TTL", "LAST_SEEN"}
			rows := make([][]string, len(runners))
			for i, r := range runners {
				rows[i] = []string{
					r.ID, r.Name, strconv.FormatBool(r.Online),
					strconv.Itoa(r.TTLSeconds), r.LastSeenAt,
				}
			}

			out.Print(headers, rows, runners)
			return nil
		},
	}
}

func newRunnerRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var ttl int
	var labels []string

	cmd := &cobra.Command{
		Use:   "register RUNNER_ID",
		Short: "Register a new runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := RegisterRunnerRequest{
				ID:         args[0],
				Name:       name,
				TTLSeconds: ttl,
			}

			if len(labels) > 0 {
				req.Labels = make(map[string]string)
				for _, kv := range labels {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid label format %q, expected KEY=VALUE", kv)
					}
					req.Labels[parts[0]] = parts[1]
				}
			}

			runner, err := client.RegisterRunner(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Runner %s registered", runner.ID))
			out.JSON(runner)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Liveness TTL in seconds (default: server-side)")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "Label KEY=VALUE (repeatable)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newRunnerShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUNNER_ID",
		Short: "Show runner details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runner, err := client.GetRunner(args[0])
			if err != nil {
				return err
			}

			out.JSON(runner)
			return nil
		},
	}
}

func newRunnerRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove RUNNER_ID",
		Short: "Deregister a runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeregisterRunner(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Runner %s removed", args[0]))
			return nil
		},
	}
}

func newRunnerHeartbeatCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var mqURL string

	cmd := &cobra.Command{
		Use:   "heartbeat RUNNER_ID",
		Short: "Send a heartbeat for a runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if mqURL != "" {
				if err := publishHeartbeat(cmd.Context(), mqURL, args[0]); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Heartbeat for %s published to queue", args[0]))
				return nil
			}

			hb, err := clientFn().HeartbeatRunner(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Heartbeat recorded at %s", hb.LastSeenAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&mqURL, "mq-url", "", "Publish via RabbitMQ instead of HTTP (AMQP URL)")

	return cmd
}

// publishHeartbeat отправляет heartbeat через очередь — тем же путём,
// каким его шлёт сам runner.
func publishHeartbeat(ctx context.Context, mqURL, runnerID string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	conn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		return fmt.Errorf("connect to mq: %w", err)
	}
	defer conn.Close()

	return mq.NewPublisher(conn, logger).PublishHeartbeat(ctx, runnerID)
}

func newRunnerFactsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var latest bool
	var limit int

	cmd := &cobra.Command{
		Use:   "facts RUNNER_ID",
		Short: "Show runner facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if latest {
				facts, err := client.GetRunnerLatestFacts(args[0])
				if err != nil {
					return err
				}
				out.JSON(facts)
				return nil
			}

			facts, err := client.ListRunnerFacts(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "COMPONENT", "CHECKED_AT", "CHECKS"}
			rows := make([][]string, len(facts))
			for i, f := range facts {
				rows[i] = []string{f.ID, f.Component, f.CheckedAt, formatChecks(f.Checks)}
			}

			out.Print(headers, rows, facts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "Show only the most recent facts")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

// formatChecks отображает карту checks в компактную строку "key=ok|fail".
func formatChecks(checks map[string]bool) string {
	if len(checks) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(checks))
	for key, ok := range checks {
		state := "fail"
		if ok {
			state = "ok"
		}
		parts = append(parts, key+"="+state)
	}
	return strings.Join(parts, ",")
}
