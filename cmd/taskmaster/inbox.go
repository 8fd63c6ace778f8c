package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskmaster/internal/db"
	"taskmaster/internal/inbox"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import pending Telegram tasks into the store and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Close()

			database, err := db.New(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			n := inbox.New(cfg.InboxPath(), log).Import(cmd.Context(), database)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", n)
			return nil
		},
	}
}

func newInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inspect or feed the pending Telegram task inbox",
	}
	cmd.AddCommand(newInboxAddCmd(), newInboxListCmd())
	return cmd
}

func newInboxAddCmd() *cobra.Command {
	var (
		userID   int64
		username string
	)

	cmd := &cobra.Command{
		Use:   "add MESSAGE...",
		Short: "Append a message to the inbox as if it came from the bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Close()

			message := strings.Join(args, " ")
			entry, err := inbox.New(cfg.InboxPath(), log).Append(userID, username, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "chat id of the sender")
	cmd.Flags().StringVar(&username, "username", "User", "display name of the sender")
	cmd.MarkFlagRequired("user-id")
	return cmd
}

func newInboxListCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending inbox entries without importing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Close()

			in := inbox.New(cfg.InboxPath(), log)
			entries := in.Peek()

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No pending tasks in %s\n", in.Path())
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tUSERNAME\tMESSAGE")
			shown := 0
			for _, e := range entries {
				if cmd.Flags().Changed("user-id") && e.UserID != userID {
					continue
				}
				fmt.Fprintf(tw, "%d\t@%s\t%s\n", e.UserID, e.Username, e.Message)
				shown++
			}
			tw.Flush()
			fmt.Fprintf(out, "%d pending\n", shown)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "only show entries from this chat id")
	return cmd
}
