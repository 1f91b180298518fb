package main

import (
	"errors"

	sdk "github.com/di2ag/chp-sdk"
	"github.com/spf13/cobra"
)

func newCuriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "curies",
		Short: "List the entities the reasoner supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			defer sdk.CloseWithLog(c, a.logger, "chp client")

			curies, err := c.Curies(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), curies)
		},
	}
}

func newPredicatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "predicates",
		Short: "List the query edge predicates the reasoner supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			defer sdk.CloseWithLog(c, a.logger, "chp client")

			preds, err := c.Predicates(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), preds)
		},
	}
}

var errUnhealthy = errors.New("reasoner is unhealthy")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the reasoner, the cache and discovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			defer sdk.CloseWithLog(c, a.logger, "chp client")

			status := c.Health(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if status.IsUnhealthy() {
				return errUnhealthy
			}
			return nil
		},
	}
}
