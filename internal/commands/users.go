package commands

import (
	"fmt"

	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/spf13/cobra"
)

var (
	flagUsersFrom  int
	flagUsersLimit int
	flagUsersSort  string
	flagUsersOrder string
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		user, err := currentUser(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(user)
			return nil
		}
		output.UserInfo(*user)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create the Filez user for the logged-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		if err := client.CreateUser(ctx); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		user, err := currentUser(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(user)
			return nil
		}
		output.Printf("Registered.\n")
		output.UserInfo(*user)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		params, err := listParams(flagUsersFrom, flagUsersLimit, flagUsersSort, flagUsersOrder)
		if err != nil {
			return err
		}
		users, err := client.GetUserList(ctx, params)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		if flagJSON {
			output.JSON(users)
			return nil
		}
		output.UserTable(users)
		return nil
	},
}

var userGroupsCmd = &cobra.Command{
	Use:   "usergroups",
	Short: "List the user groups visible to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		params, err := listParams(flagUsersFrom, flagUsersLimit, flagUsersSort, flagUsersOrder)
		if err != nil {
			return err
		}
		groups, err := client.GetUserGroupList(ctx, params)
		if err != nil {
			return fmt.Errorf("listing user groups: %w", err)
		}
		if flagJSON {
			output.JSON(groups)
			return nil
		}
		output.UserGroupTable(groups)
		return nil
	},
}

var uploadSpaceCmd = &cobra.Command{
	Use:   "upload-space",
	Short: "Create an upload space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		if err := client.CreateUploadSpace(ctx); err != nil {
			return fmt.Errorf("creating upload space: %w", err)
		}
		output.Printf("Upload space requested.\n")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{usersCmd, userGroupsCmd} {
		c.Flags().IntVar(&flagUsersFrom, "from", 0, "Index of the first entry")
		c.Flags().IntVar(&flagUsersLimit, "limit", 0, "Maximum number of entries (0: all)")
		c.Flags().StringVar(&flagUsersSort, "sort", "", "Sort field")
		c.Flags().StringVar(&flagUsersOrder, "order", "", "Sort order: asc, desc")
	}
	rootCmd.AddCommand(whoamiCmd, registerCmd, usersCmd, userGroupsCmd, uploadSpaceCmd)
}
