package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewOrderCmd создаёт группу команд для управления orders.
func NewOrderCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Manage orders",
	}

	cmd.AddCommand(
		newOrderSubmitCmd(clientFn, outputFn),
		newOrderShowCmd(clientFn, outputFn),
		newOrderListCmd(clientFn, outputFn),
	)

	return cmd
}

func newOrderSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var orderType string
	var requestID string

	cmd := &cobra.Command{
		Use:   "submit RUNNER_ID",
		Short: "Submit an order to a runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			order, created, err := client.SubmitOrder(args[0], SubmitOrderRequest{
				Type:            orderType,
				ClientRequestID: requestID,
			})
			if err != nil {
				return err
			}

			if created {
				out.Success(fmt.Sprintf("Order %s submitted", order.ID))
			} else {
				out.Success(fmt.Sprintf("Order %s already exists (idempotent replay)", order.ID))
			}
			out.JSON(order)
			return nil
		},
	}

	cmd.Flags().StringVar(&orderType, "type", "runner.selftest", "Order type (runner.selftest, runner.reconcile)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Client request ID for idempotent retries")

	return cmd
}

func newOrderShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ORDER_ID",
		Short: "Show order details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			order, err := client.GetOrder(args[0])
			if err != nil {
				return err
			}

			out.JSON(order)
			return nil
		},
	}
}

func newOrderListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list RUNNER_ID",
		Short: "List orders for a runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			orders, err := client.ListRunnerOrders(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TYPE", "STATUS", "EXIT", "SUMMARY", "CREATED"}
			rows := make([][]string, len(orders))
			for i, o := range orders {
				exitCode := "-"
				if o.ExitCode != nil {
					exitCode = fmt.Sprintf("%d", *o.ExitCode)
				}
				rows[i] = []string{o.ID, o.Type, o.Status, exitCode, o.Summary, o.CreatedAt}
			}

			out.Print(headers, rows, orders)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}
