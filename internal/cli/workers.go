package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var workerHeaders = []string{"NAME", "PATH", "URL", "PAUSED", "PARALLEL", "PENDING", "ACTIVE"}

func workerRow(w WorkerResponse) []string {
	parallel := "default"
	if w.Parallel > 0 {
		parallel = strconv.Itoa(w.Parallel)
	}
	return []string{
		w.Name,
		w.Path,
		w.URL,
		strconv.FormatBool(w.Paused),
		parallel,
		strconv.Itoa(w.Pending),
		strconv.Itoa(w.Active),
	}
}

func workerFields(w WorkerResponse) []Field {
	row := workerRow(w)
	fields := make([]Field, len(row))
	for i, value := range row {
		fields[i] = Field{Label: workerHeaders[i], Value: value}
	}
	return fields
}

// NewWorkersCmd создаёт группу команд для управления воркерами.
func NewWorkersCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workers",
		Aliases: []string{"worker"},
		Short:   "Manage endpoint workers",
	}

	cmd.AddCommand(
		newWorkersListCmd(clientFn, outputFn),
		newWorkersGetCmd(clientFn, outputFn),
		newWorkersPauseCmd(clientFn, outputFn, true),
		newWorkersPauseCmd(clientFn, outputFn, false),
		newWorkersRepopulateCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkersListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workers, err := client.ListWorkers()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workers))
			for i, w := range workers {
				rows[i] = workerRow(w)
			}

			out.Print(workerHeaders, rows, workers)
			return nil
		},
	}
}

func newWorkersGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show worker state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			w, err := client.GetWorker(args[0])
			if err != nil {
				return err
			}

			out.Details(workerFields(*w), w)
			return nil
		},
	}
}

func newWorkersPauseCmd(clientFn func() *Client, outputFn func() *Output, paused bool) *cobra.Command {
	use, short := "resume NAME", "Resume processing of a worker"
	if paused {
		use, short = "pause NAME", "Pause processing of a worker"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := clientFn().SetPaused(args[0], paused)
			if err != nil {
				return err
			}

			outputFn().Success(msg)
			return nil
		},
	}
}

func newWorkersRepopulateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "repopulate NAME",
		Short: "Re-read the queue directory of a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := clientFn().Repopulate(args[0])
			if err != nil {
				return err
			}

			outputFn().Success(msg)
			return nil
		},
	}
}
