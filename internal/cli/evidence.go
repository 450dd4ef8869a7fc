package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEvidenceCmd создаёт группу команд для просмотра evidence.
func NewEvidenceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Inspect captured execution evidence",
	}

	cmd.AddCommand(
		newEvidenceListCmd(clientFn, outputFn),
		newEvidenceShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newEvidenceListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var runnerID string
	var orderID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List evidence records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runnerID == "" && orderID == "" {
				return fmt.Errorf("either --runner-id or --order-id is required")
			}

			client := clientFn()
			out := outputFn()

			evidences, err := client.ListEvidences(ListEvidencesOpts{
				RunnerID: runnerID,
				OrderID:  orderID,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "RUNNER_ID", "ORDER_ID", "EXIT", "CREATED"}
			rows := make([][]string, len(evidences))
			for i, ev := range evidences {
				rows[i] = []string{ev.ID, ev.RunnerID, ev.OrderID, strconv.Itoa(ev.ExitCode), ev.CreatedAt}
			}

			out.Print(headers, rows, evidences)
			return nil
		},
	}

	cmd.Flags().StringVar(&runnerID, "runner-id", "", "Filter by runner ID")
	cmd.Flags().StringVar(&orderID, "order-id", "", "Filter by order ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newEvidenceShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var stdoutOnly bool

	cmd := &cobra.Command{
		Use:   "show EVIDENCE_ID",
		Short: "Show evidence details with captured output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			evidence, err := client.GetEvidence(args[0])
			if err != nil {
				return err
			}

			if stdoutOnly {
				fmt.Print(evidence.Stdout)
				return nil
			}

			out.JSON(evidence)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdoutOnly, "stdout", false, "Print only the captured stdout")

	return cmd
}
