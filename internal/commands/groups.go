package commands

import (
	"fmt"

	"github.com/my-own-web-services/mows-sub001/internal/output"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/spf13/cobra"
)

var (
	flagDynamic      bool
	flagRuleField    string
	flagRulePattern  string
	flagRuleNegate   bool
	flagGroupKeyword []string
	flagGroupPerms   []string
	flagGroupName    string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List your file groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}
		groups, err := client.GetOwnFileGroups(ctx)
		if err != nil {
			return fmt.Errorf("listing groups: %w", err)
		}
		if flagJSON {
			if groups == nil {
				groups = []filez.FileGroup{}
			}
			output.JSON(groups)
			return nil
		}
		output.GroupTable(groups)
		return nil
	},
}

var mkgroupCmd = &cobra.Command{
	Use:   "mkgroup <name>",
	Short: "Create a file group",
	Long: `Create a static group, or a dynamic group whose members are every file
of yours matching a rule.

  filez mkgroup Inbox
  filez mkgroup PDFs --dynamic --rule-field mime_type --rule-pattern pdf
  filez mkgroup NotPDFs --dynamic --rule-field mime_type --rule-pattern pdf --not`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}

		req := filez.CreateGroupRequest{
			Name:          args[0],
			GroupType:     filez.FileGroupTypeStatic,
			Keywords:      flagGroupKeyword,
			PermissionIDs: flagGroupPerms,
		}
		if flagDynamic {
			req.GroupType = filez.FileGroupTypeDynamic
			rule, err := ruleFromFlags()
			if err != nil {
				return err
			}
			req.DynamicGroupRules = rule
		}

		resp, err := client.CreateGroup(ctx, req)
		if err != nil {
			return fmt.Errorf("creating group: %w", err)
		}
		if resp.GroupID == "" {
			return fmt.Errorf("server did not create group %q", args[0])
		}
		if flagJSON {
			output.JSON(resp)
			return nil
		}
		output.Printf("Created %s group %s (%s)\n", req.GroupType, args[0], resp.GroupID)
		return nil
	},
}

var editgroupCmd = &cobra.Command{
	Use:   "editgroup <group-id>",
	Short: "Update a file group",
	Long: `Overwrite selected fields of a group. Unset flags leave the field unchanged.

  filez editgroup <group-id> --name Archive
  filez editgroup <group-id> --rule-field name --rule-pattern '^2024-'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireAuth(ctx); err != nil {
			return err
		}

		var fields filez.UpdateFileGroupFields
		flags := cmd.Flags()
		if flags.Changed("name") {
			fields.Name = &flagGroupName
		}
		if flags.Changed("keyword") {
			fields.Keywords = flagGroupKeyword
		}
		if flags.Changed("permission") {
			fields.PermissionIDs = flagGroupPerms
		}
		if flags.Changed("rule-pattern") {
			rule, err := ruleFromFlags()
			if err != nil {
				return err
			}
			fields.DynamicGroupRules = rule
		}

		err := client.UpdateFileGroup(ctx, filez.UpdateFileGroupRequest{FileGroupID: args[0], Fields: fields})
		if err != nil {
			return fmt.Errorf("updating group: %w", err)
		}
		output.Printf("Updated group %s.\n", args[0])
		return nil
	},
}

func ruleFromFlags() (*filez.FilterRule, error) {
	if flagRulePattern == "" {
		return nil, fmt.Errorf("dynamic groups need --rule-pattern")
	}
	rule := &filez.FilterRule{
		Field:    flagRuleField,
		RuleType: filez.FilterRuleMatchRegex,
		Value:    flagRulePattern,
	}
	if flagRuleNegate {
		rule.RuleType = filez.FilterRuleNotMatchRegex
	}
	return rule, nil
}

func init() {
	for _, c := range []*cobra.Command{mkgroupCmd, editgroupCmd} {
		c.Flags().StringVar(&flagRuleField, "rule-field", "name", "File field the rule matches: name, mime_type, keywords, owner_id")
		c.Flags().StringVar(&flagRulePattern, "rule-pattern", "", "Regular expression of the rule")
		c.Flags().BoolVar(&flagRuleNegate, "not", false, "Select files that do not match the rule")
		c.Flags().StringSliceVar(&flagGroupKeyword, "keyword", nil, "Group keyword (repeatable)")
		c.Flags().StringSliceVar(&flagGroupPerms, "permission", nil, "Permission id attached to the group (repeatable)")
	}
	mkgroupCmd.Flags().BoolVar(&flagDynamic, "dynamic", false, "Create a dynamic group")
	editgroupCmd.Flags().StringVar(&flagGroupName, "name", "", "New group name")

	rootCmd.AddCommand(groupsCmd, mkgroupCmd, editgroupCmd)
}
