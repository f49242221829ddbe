// historyctl inspects the change history over the gRPC API.
//
//	historyctl history projects prj-1
//	historyctl version phases ph-2 3
//	historyctl compare phases ph-2 1 3
//	historyctl activity --actor usr-lead
//	historyctl token usr-admin
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	addr  string
	token string
	as    string
	json  bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "historyctl",
		Short:         "Inspect the versioned change history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.addr, "addr", envOr("HISTORYCTL_ADDR", "localhost:8080"), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&g.token, "token", os.Getenv("HISTORYCTL_TOKEN"), "Bearer access token")
	rootCmd.PersistentFlags().StringVar(&g.as, "as", "", "Mint a token for this user id instead of --token")
	rootCmd.PersistentFlags().BoolVar(&g.json, "json", false, "Print raw JSON")

	rootCmd.AddCommand(
		newHistoryCmd(g),
		newVersionCmd(g),
		newCompareCmd(g),
		newActivityCmd(g),
		newTokenCmd(),
	)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
