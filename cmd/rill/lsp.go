package main

import (
	"github.com/spf13/cobra"

	"github.com/recera/rill/internal/lsp"
	"github.com/recera/rill/pkg/codegen"
	"github.com/recera/rill/pkg/compiler"
)

func newLSPCommand() *cobra.Command {
	var flags projectFlags
	var tcp string
	var ws string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server",
		Long:  `Runs a language server that reports template diagnostics and describes script bindings on hover. Speaks over stdio unless --tcp or --ws is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			server := lsp.New(compiler.Options{
				Format:      codegen.Format(cfg.Format),
				EventPrefix: cfg.EventPrefix,
			}, version)

			switch {
			case tcp != "":
				return server.RunTCP(tcp)
			case ws != "":
				return server.RunWebSocket(ws)
			default:
				return server.RunStdio()
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&tcp, "tcp", "", "Listen for a client on this TCP address")
	cmd.Flags().StringVar(&ws, "ws", "", "Listen for a client on this websocket address")
	return cmd
}
