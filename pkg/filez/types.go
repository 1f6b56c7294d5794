package filez

// File is a stored file as reported by the Filez service. Timestamps are unix seconds.
type File struct {
	ID                  string                 `json:"_id"`
	Name                string                 `json:"name"`
	OwnerID             string                 `json:"owner_id"`
	MimeType            string                 `json:"mime_type"`
	Size                int64                  `json:"size"`
	ServerCreated       int64                  `json:"server_created"`
	Created             int64                  `json:"created"`
	Modified            *int64                 `json:"modified"`
	Accessed            *int64                 `json:"accessed"`
	AccessedCount       int64                  `json:"accessed_count"`
	StaticFileGroupIDs  []string               `json:"static_file_group_ids"`
	DynamicFileGroupIDs []string               `json:"dynamic_file_group_ids"`
	Keywords            []string               `json:"keywords"`
	PermissionIDs       []string               `json:"permission_ids"`
	Readonly            bool                   `json:"readonly"`
	SHA256              *string                `json:"sha256"`
	AppData             map[string]interface{} `json:"app_data"`
}

type FileGroupType string

const (
	FileGroupTypeStatic  FileGroupType = "Static"
	FileGroupTypeDynamic FileGroupType = "Dynamic"
)

type FilterRuleType string

const (
	FilterRuleMatchRegex    FilterRuleType = "MatchRegex"
	FilterRuleNotMatchRegex FilterRuleType = "NotMatchRegex"
)

// FilterRule selects the members of a dynamic group by matching a file field.
type FilterRule struct {
	Field    string         `json:"field"`
	RuleType FilterRuleType `json:"rule_type"`
	Value    string         `json:"value"`
}

type FileGroup struct {
	ID                  string        `json:"_id"`
	Name                string        `json:"name"`
	OwnerID             string        `json:"owner_id"`
	GroupType           FileGroupType `json:"group_type"`
	DynamicGroupRules   *FilterRule   `json:"dynamic_group_rules"`
	PermissionIDs       []string      `json:"permission_ids"`
	Keywords            []string      `json:"keywords"`
	MimeTypes           []string      `json:"mime_types"`
	GroupHierarchyPaths []string      `json:"group_hierarchy_paths"`
	ItemCount           int64         `json:"item_count"`
	Readonly            bool          `json:"readonly"`
}

type PermissionUseType string

const (
	PermissionUseOnce     PermissionUseType = "Once"
	PermissionUseMultiple PermissionUseType = "Multiple"
)

type ResourceType string

const (
	ResourceFile      ResourceType = "File"
	ResourceFileGroup ResourceType = "FileGroup"
	ResourceUser      ResourceType = "User"
	ResourceUserGroup ResourceType = "UserGroup"
)

// Actions a permission ACL can grant.
const (
	ActionGetFile        = "get_file"
	ActionGetFileInfo    = "get_file_info"
	ActionUpdateFileInfo = "update_file_infos"
	ActionListGroupItems = "get_file_infos_by_group_id"
)

// ACLWho lists the subjects a permission applies to.
type ACLWho struct {
	Link       bool     `json:"link"`
	Password   *string  `json:"password"`
	Users      []string `json:"users"`
	UserGroups []string `json:"user_groups"`
}

type ACL struct {
	What []string `json:"what"`
	Who  ACLWho   `json:"who"`
}

type PermissionContent struct {
	Type ResourceType `json:"type"`
	ACL  *ACL         `json:"acl"`
}

type Permission struct {
	ID      string            `json:"_id"`
	Name    string            `json:"name"`
	OwnerID string            `json:"owner_id"`
	UseType PermissionUseType `json:"use_type"`
	Content PermissionContent `json:"content"`
}

type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleUser  UserRole = "User"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInvited  UserStatus = "Invited"
	UserStatusDisabled UserStatus = "Disabled"
)

// UserLimits is the storage quota of a user. A zero maximum means unlimited.
type UserLimits struct {
	MaxStorage  int64 `json:"max_storage"`
	UsedStorage int64 `json:"used_storage"`
	MaxFiles    int64 `json:"max_files"`
	UsedFiles   int64 `json:"used_files"`
}

type User struct {
	ID           string      `json:"_id"`
	Name         *string     `json:"name"`
	Email        *string     `json:"email"`
	Role         UserRole    `json:"role"`
	Status       UserStatus  `json:"status"`
	Limits       *UserLimits `json:"limits"`
	UserGroupIDs []string    `json:"user_group_ids"`
}

type UserGroupVisibility string

const (
	UserGroupPublic  UserGroupVisibility = "Public"
	UserGroupPrivate UserGroupVisibility = "Private"
)

type UserGroup struct {
	ID            string              `json:"_id"`
	Name          string              `json:"name"`
	OwnerID       string              `json:"owner_id"`
	Visibility    UserGroupVisibility `json:"visibility"`
	PermissionIDs []string            `json:"permission_ids"`
}
