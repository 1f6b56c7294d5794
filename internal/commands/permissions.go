package commands

import (
	"fmt"

	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/spf13/cobra"
)

var (
	flagPermResource   string
	flagPermActions    []string
	flagPermUsers      []string
	flagPermUserGroups []string
	flagPermOnce       bool
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List your permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		perms, err := client.GetOwnPermissions(ctx)
		if err != nil {
			return fmt.Errorf("listing permissions: %w", err)
		}
		if flagJSON {
			if perms == nil {
				perms = []filez.Permission{}
			}
			output.JSON(perms)
			return nil
		}
		output.PermissionTable(perms)
		return nil
	},
}

var mkpermCmd = &cobra.Command{
	Use:   "mkperm <name>",
	Short: "Create a permission",
	Long: `Create a permission that grants actions to users or user groups. Attach
it to a group with "filez editgroup <group-id> --permission <id>".

  filez mkperm share-with-bob --user <user-id>
  filez mkperm team-read --user-group <group-id> --action get_file_info`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}

		useType := filez.PermissionUseMultiple
		if flagPermOnce {
			useType = filez.PermissionUseOnce
		}
		resp, err := client.CreatePermission(ctx, filez.CreatePermissionRequest{
			Name:    args[0],
			UseType: useType,
			Content: filez.PermissionContent{
				Type: filez.ResourceType(flagPermResource),
				ACL: &filez.ACL{
					What: flagPermActions,
					Who: filez.ACLWho{
						Users:      flagPermUsers,
						UserGroups: flagPermUserGroups,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("creating permission: %w", err)
		}
		if resp.PermissionID == "" {
			return fmt.Errorf("server did not create permission %q", args[0])
		}
		if flagJSON {
			output.JSON(resp)
			return nil
		}
		output.Printf("Created permission %s (%s)\n", args[0], resp.PermissionID)
		return nil
	},
}

func init() {
	mkpermCmd.Flags().StringVar(&flagPermResource, "resource", string(filez.ResourceFileGroup), "Resource type: File, FileGroup, User, UserGroup")
	mkpermCmd.Flags().StringSliceVar(&flagPermActions, "action", []string{filez.ActionGetFile, filez.ActionGetFileInfo, filez.ActionListGroupItems}, "Granted action (repeatable)")
	mkpermCmd.Flags().StringSliceVar(&flagPermUsers, "user", nil, "User id granted the actions (repeatable)")
	mkpermCmd.Flags().StringSliceVar(&flagPermUserGroups, "user-group", nil, "User group id granted the actions (repeatable)")
	mkpermCmd.Flags().BoolVar(&flagPermOnce, "once", false, "Permission is consumed by its first use")

	rootCmd.AddCommand(permissionsCmd, mkpermCmd)
}
