package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long: `Add, remove, and list the users the scheduled job syncs.

A new user has no linked accounts and no calendar selected. Link accounts
with 'gradecal login', then pick a calendar with 'gradecal settings set'.`,
	}

	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserRemoveCmd())
	cmd.AddCommand(newUserListCmd())

	return cmd
}

func newUserAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <user>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				if err := st.AddUser(cmd.Context(), args[0]); err != nil {
					return err
				}

				cc.Statusf("Added user %s.\n", args[0])

				return nil
			})
		},
	}
}

func newUserRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user>",
		Short: "Remove a user and everything stored for them",
		Long: `Remove a user with their settings, credentials, and assignment cache.

Calendar events already created are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				if err := st.RemoveUser(cmd.Context(), args[0]); err != nil {
					return err
				}

				cc.Statusf("Removed user %s.\n", args[0])

				return nil
			})
		},
	}
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				users, err := st.Users(cmd.Context())
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return writeJSON(os.Stdout, users)
				}

				if len(users) == 0 {
					fmt.Println("No users. Run 'gradecal user add <user>' to add one.")
					return nil
				}

				for _, u := range users {
					fmt.Println(u)
				}

				return nil
			})
		},
	}
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(st *store.Store, cc *CLIContext) error) error {
	cc := mustCLIContext(cmd.Context())

	st, err := openStore(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(st, cc)
}
