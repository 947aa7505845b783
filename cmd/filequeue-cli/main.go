// filequeue-cli — инструмент командной строки для управления
// воркерами работающего mediator'а.
//
// Использование:
//
//	filequeue-cli [--url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	workers    Управление воркерами (list, get, pause, resume, repopulate)
//	heartbeat  Uptime сервера
//	events     Поток событий элементов из RabbitMQ
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/filequeue/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var baseURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "filequeue-cli",
		Short:         "filequeue CLI — control a running file queue mediator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:4002", "Mediator URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(baseURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewWorkersCmd(clientFn, outputFn),
		cli.NewHeartbeatCmd(clientFn, outputFn),
		cli.NewEventsCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		outputFn().Error(err.Error())
		os.Exit(1)
	}
}
