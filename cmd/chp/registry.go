package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/di2ag/chp-sdk/config"
	"github.com/di2ag/chp-sdk/registry"
	"github.com/di2ag/chp-sdk/trapi"
)

var errNoRegistry = errors.New("no registry configured: set registry.endpoints or " + registry.EnvEndpoints)

// connectRegistry opens the etcd registry named by the config file or the
// environment.
func connectRegistry(cfg *config.Config, logger *slog.Logger) (registry.Registry, error) {
	if cfg.Registry != nil {
		return registry.NewClient(registry.Config{
			Endpoints:   cfg.Registry.Endpoints,
			Namespace:   cfg.Registry.GetNamespace(),
			DialTimeout: cfg.Registry.GetDialTimeout(),
		}, registry.WithLogger(logger))
	}
	rc, err := registry.NewClientFromEnv(registry.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, errNoRegistry
	}
	return rc, nil
}

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and announce reasoner instances in the discovery registry",
	}
	cmd.AddCommand(newRegistryListCmd(a), newRegistryAnnounceCmd(a))
	return cmd
}

func newRegistryListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered instances, of every reasoner unless --reasoner is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.newRegistry(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer reg.Close()

			var instances []registry.ReasonerInfo
			if a.reasonerID != "" {
				instances, err = reg.Discover(cmd.Context(), a.reasonerID)
			} else {
				instances, err = reg.DiscoverAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			slices.SortFunc(instances, func(x, y registry.ReasonerInfo) int {
				return cmp.Or(cmp.Compare(x.ReasonerID, y.ReasonerID), cmp.Compare(x.InstanceID, y.InstanceID))
			})
			return printJSON(cmd.OutOrStdout(), instances)
		},
	}
}

func newRegistryAnnounceCmd(a *app) *cobra.Command {
	var (
		url        string
		instanceID string
		versions   []string
	)
	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Register a reasoner instance and keep it registered until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, v := range versions {
				if _, err := trapi.ParseSchemaVersion(v); err != nil {
					return err
				}
			}
			reg, err := a.newRegistry(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer reg.Close()

			reasonerID := cmp.Or(a.reasonerID, a.cfg.ReasonerID)
			info := registry.ReasonerInfo{
				ReasonerID:    reasonerID,
				InstanceID:    cmp.Or(instanceID, uuid.NewString()),
				URL:           url,
				TRAPIVersions: versions,
				StartedAt:     time.Now().UTC(),
			}
			ctx := cmd.Context()
			if err := reg.Register(ctx, info); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s instance %s at %s\n", info.ReasonerID, info.InstanceID, info.URL)

			<-ctx.Done()

			// The command context is done; deregister on a fresh one.
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := reg.Deregister(dctx, info); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deregistered %s\n", info.InstanceID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&url, "url", "", "base url queries are sent to")
	flags.StringVar(&instanceID, "instance-id", "", "instance id (default a new UUID)")
	flags.StringSliceVar(&versions, "trapi-version", nil, "TRAPI versions the instance accepts")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
