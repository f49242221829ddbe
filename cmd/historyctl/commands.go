package main

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"projectbeheer/backend/internal/audit/domain"
	audithandler "projectbeheer/backend/internal/audit/handler"
	"projectbeheer/backend/internal/server/rpc"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <table> <id>",
		Short: "List every change of one record, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out rpc.List[*domain.Entry]
			req := audithandler.EntityRequest{EntityTable: args[0], EntityID: args[1]}
			if err := withClient(cmd, g, "History", req, &out); err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), out.Items, g.json)
		},
	}
}

func newVersionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version <table> <id> <version>",
		Short: "Show the state of a record right after a version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVersion(args[2])
			if err != nil {
				return err
			}
			var out audithandler.VersionResponse
			req := audithandler.EntityRequest{EntityTable: args[0], EntityID: args[1], Version: v}
			if err := withClient(cmd, g, "Version", req, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newCompareCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <table> <id> <v1> <v2>",
		Short: "Show the fields that differ between two versions",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v1, err := parseVersion(args[2])
			if err != nil {
				return err
			}
			v2, err := parseVersion(args[3])
			if err != nil {
				return err
			}
			var out audithandler.CompareResponse
			req := audithandler.EntityRequest{EntityTable: args[0], EntityID: args[1], V1: v1, V2: v2}
			if err := withClient(cmd, g, "Compare", req, &out); err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printChanges(cmd.OutOrStdout(), out.Changes)
		},
	}
}

func newActivityCmd(g *globalFlags) *cobra.Command {
	var (
		actorID string
		table   string
		since   time.Duration
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent changes by actor, table or time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := audithandler.ActivityRequest{ActorID: actorID, EntityTable: table, Limit: limit}
			if actorID == "" && table == "" {
				req.Since = time.Now().UTC().Add(-since)
			}
			var out rpc.List[*domain.Entry]
			if err := withClient(cmd, g, "Activity", req, &out); err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), out.Items, g.json)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "Only changes made by this user id")
	cmd.Flags().StringVar(&table, "table", "", "Only changes to this table")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Look-back window when neither --actor nor --table is set")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of entries")
	return cmd
}

func withClient(cmd *cobra.Command, g *globalFlags, method string, in, out any) error {
	c, closeFn, err := dial(g)
	if err != nil {
		return err
	}
	defer closeFn()
	return c.call(cmd.Context(), method, in, out)
}

func parseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 {
		return 0, errors.Newf("version must be a positive integer, got %q", s)
	}
	return v, nil
}
