package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumenhq/sentinel/pkg/tokens"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage API tokens",
	Long: `Issue, list and toggle API tokens directly against the token database.

These commands operate on the same SQLite file the running server uses;
SQLite's locking makes concurrent access safe.`,
}

var tokensIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Issue a new API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTokenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := store.Issue(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Printf("issued token %d for %s\n", record.ID, record.Email)
		fmt.Printf("copy it now, it is not shown again:\n\n  %s\n", record.Token)
		return nil
	},
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issued tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTokenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list tokens: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tCREATED")
		for _, rec := range records {
			status := "active"
			if !rec.Active {
				status = "disabled"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				rec.ID, rec.Email, status, rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var tokensToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Toggle a token between active and disabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid token id %q", args[0])
		}

		store, err := openTokenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := store.Toggle(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("toggle token %d: %w", id, err)
		}
		status := "active"
		if !record.Active {
			status = "disabled"
		}
		fmt.Printf("token %d (%s) is now %s\n", record.ID, record.Email, status)
		return nil
	},
}

func openTokenStore() (*tokens.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := tokens.NewStore(cfg.Tokens.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open token store %s: %w", cfg.Tokens.DBPath, err)
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensIssueCmd, tokensListCmd, tokensToggleCmd)
}
