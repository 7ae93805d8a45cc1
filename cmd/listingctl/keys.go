package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/listingscope/internal/apikey"
)

func newKeysCmd(opts *rootOptions, open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysCreateCmd(opts, open), newKeysListCmd(opts, open))
	return cmd
}

func newKeysCreateCmd(opts *rootOptions, open opener) *cobra.Command {
	var (
		owner  string
		name   string
		scopes []string
		cost   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID := uuid.New()
			if owner != "" {
				parsed, err := uuid.Parse(owner)
				if err != nil {
					return fmt.Errorf("invalid --owner: %w", err)
				}
				ownerID = parsed
			}

			key, raw, err := apikey.Generate(ownerID, name, scopes, cost, time.Now().UTC())
			if err != nil {
				return err
			}

			b, err := open(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.store.CreateAPIKey(cmd.Context(), key); err != nil {
				return fmt.Errorf("store key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:     %s\n", key.ID)
			fmt.Fprintf(out, "owner:  %s\n", key.OwnerID)
			fmt.Fprintf(out, "scopes: %s\n", strings.Join(key.Scopes, ","))
			fmt.Fprintf(out, "key:    %s\n", raw)
			fmt.Fprintln(out, "Store this key now; it cannot be shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id the key authenticates as (default: a new id)")
	cmd.Flags().StringVar(&name, "name", "", "Human readable key name")
	cmd.Flags().StringSliceVar(&scopes, "scopes", apikey.DefaultScopes(), "Comma separated scopes")
	cmd.Flags().IntVar(&cost, "bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost for the stored hash")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newKeysListCmd(opts *rootOptions, open opener) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active API keys of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}

			b, err := open(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer b.close()

			keys, err := b.store.ListAPIKeys(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPREFIX\tNAME\tSCOPES\tCREATED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					k.ID, k.KeyPrefix, k.Name, strings.Join(k.Scopes, ","), k.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
