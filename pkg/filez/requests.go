package filez

import (
	"encoding/json"
	"fmt"
)

// SearchRequest is the body of POST /api/search/. An empty GroupID searches the files the
// caller owns; shared files are searched through their GroupID.
type SearchRequest struct {
	GroupID string `json:"group_id"`
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
}

// CreateFileRequest travels JSON-encoded in the X-Filez-Metadata header of POST
// /api/create_file/; the request body carries the raw content.
type CreateFileRequest struct {
	Name               string   `json:"name"`
	MimeType           string   `json:"mime_type"`
	StaticFileGroupIDs []string `json:"static_file_group_ids"`
	Created            *int64   `json:"created"`
	Modified           *int64   `json:"modified"`
}

type CreateGroupRequest struct {
	Name                string        `json:"name"`
	GroupType           FileGroupType `json:"group_type"`
	DynamicGroupRules   *FilterRule   `json:"dynamic_group_rules"`
	Keywords            []string      `json:"keywords"`
	MimeTypes           []string      `json:"mime_types"`
	GroupHierarchyPaths []string      `json:"group_hierarchy_paths"`
	PermissionIDs       []string      `json:"permission_ids"`
}

type CreateGroupResponse struct {
	GroupID string `json:"group_id"`
}

type CreatePermissionRequest struct {
	Name    string            `json:"name"`
	UseType PermissionUseType `json:"use_type"`
	Content PermissionContent `json:"content"`
}

type CreatePermissionResponse struct {
	PermissionID string `json:"permission_id"`
}

// UpdateFileGroupFields holds the group fields to overwrite; nil fields are left untouched.
type UpdateFileGroupFields struct {
	Name                *string     `json:"name"`
	Keywords            []string    `json:"keywords"`
	MimeTypes           []string    `json:"mime_types"`
	GroupHierarchyPaths []string    `json:"group_hierarchy_paths"`
	PermissionIDs       []string    `json:"permission_ids"`
	DynamicGroupRules   *FilterRule `json:"dynamic_group_rules"`
}

type UpdateFileGroupRequest struct {
	FileGroupID string                `json:"file_group_id"`
	Fields      UpdateFileGroupFields `json:"fields"`
}

type SortOrder string

const (
	SortAscending  SortOrder = "Ascending"
	SortDescending SortOrder = "Descending"
)

// ListParams pages a listing call. Nil fields are left out of the query string.
type ListParams struct {
	FromIndex int
	Limit     *int
	SortField *string
	SortOrder *SortOrder
}

// FileInfoFieldKind names the single file field an update_file_infos call changes.
type FileInfoFieldKind string

const (
	FieldName               FileInfoFieldKind = "Name"
	FieldMimeType           FileInfoFieldKind = "MimeType"
	FieldKeywords           FileInfoFieldKind = "Keywords"
	FieldStaticFileGroupIDs FileInfoFieldKind = "StaticFileGroupIds"
	FieldOwnerID            FileInfoFieldKind = "OwnerId"
)

// FileInfoField is encoded as a one-key object, e.g. {"Name":"report.pdf"}.
type FileInfoField struct {
	Kind  FileInfoFieldKind
	Text  string
	Items []string
}

func NameField(name string) FileInfoField {
	return FileInfoField{Kind: FieldName, Text: name}
}

func MimeTypeField(mimeType string) FileInfoField {
	return FileInfoField{Kind: FieldMimeType, Text: mimeType}
}

func KeywordsField(keywords []string) FileInfoField {
	return FileInfoField{Kind: FieldKeywords, Items: keywords}
}

func StaticFileGroupIDsField(ids []string) FileInfoField {
	return FileInfoField{Kind: FieldStaticFileGroupIDs, Items: ids}
}

func OwnerIDField(ownerID string) FileInfoField {
	return FileInfoField{Kind: FieldOwnerID, Text: ownerID}
}

func (k FileInfoFieldKind) isList() (bool, error) {
	switch k {
	case FieldName, FieldMimeType, FieldOwnerID:
		return false, nil
	case FieldKeywords, FieldStaticFileGroupIDs:
		return true, nil
	default:
		return false, fmt.Errorf("unknown file info field %q", string(k))
	}
}

func (f FileInfoField) MarshalJSON() ([]byte, error) {
	list, err := f.Kind.isList()
	if err != nil {
		return nil, err
	}
	if list {
		items := f.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(map[string][]string{string(f.Kind): items})
	}
	return json.Marshal(map[string]string{string(f.Kind): f.Text})
}

func (f *FileInfoField) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("file info field must have exactly one key, got %d", len(raw))
	}
	for key, value := range raw {
		kind := FileInfoFieldKind(key)
		list, err := kind.isList()
		if err != nil {
			return err
		}
		*f = FileInfoField{Kind: kind}
		if list {
			return json.Unmarshal(value, &f.Items)
		}
		return json.Unmarshal(value, &f.Text)
	}
	return nil
}

type UpdateFileInfosRequest struct {
	FileID string        `json:"file_id"`
	Field  FileInfoField `json:"field"`
}
