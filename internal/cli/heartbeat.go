package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewHeartbeatCmd создаёт команду проверки живости сервера.
func NewHeartbeatCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Show server uptime",
		RunE: func(cmd *cobra.Command, args []string) error {
			hb, err := clientFn().Heartbeat()
			if err != nil {
				return err
			}

			uptime := time.Duration(hb.Uptime * float64(time.Second)).Round(time.Second)
			outputFn().Print(
				[]string{"UPTIME"},
				[][]string{{fmt.Sprint(uptime)}},
				hb,
			)
			return nil
		},
	}
}
