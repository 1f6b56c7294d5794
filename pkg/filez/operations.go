package filez

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// Search returns the files matching q. The status code is not checked.
func (c *Client) Search(ctx context.Context, q SearchRequest) ([]File, error) {
	var files []File
	if err := c.postJSON(ctx, "search", "/api/search/", q, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// CreateUser registers the session's identity as a Filez user.
func (c *Client) CreateUser(ctx context.Context) error {
	return c.postJSON(ctx, "create_user", "/api/create_user/", nil, nil)
}

// CreateFile uploads content with its metadata in the X-Filez-Metadata header.
func (c *Client) CreateFile(ctx context.Context, content io.Reader, meta CreateFileRequest) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/create_file/", content)
	if err != nil {
		return err
	}
	req.Header.Set(metadataHeader, string(encoded))
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.doDiscard("create_file", req)
}

// CreateGroup creates a file group and returns its id.
func (c *Client) CreateGroup(ctx context.Context, group CreateGroupRequest) (*CreateGroupResponse, error) {
	var out CreateGroupResponse
	if err := c.postJSON(ctx, "create_group", "/api/create_group/", group, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUploadSpace(ctx context.Context) error {
	return c.postJSON(ctx, "create_upload_space", "/api/create_upload_space/", nil, nil)
}

// CreatePermission creates an ACL entry that groups and files can reference by id.
func (c *Client) CreatePermission(ctx context.Context, p CreatePermissionRequest) (*CreatePermissionResponse, error) {
	var out CreatePermissionResponse
	if err := c.postJSON(ctx, "create_permission", "/api/create_permission/", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// The delete and bulk update calls below carry no resource address. The service contract
// for addressing them is undecided, so they only issue the bare request.

func (c *Client) DeleteFile(ctx context.Context) error {
	return c.postJSON(ctx, "delete_file", "/api/delete_file/", nil, nil)
}

func (c *Client) DeleteGroup(ctx context.Context) error {
	return c.postJSON(ctx, "delete_group", "/api/delete_group/", nil, nil)
}

func (c *Client) DeletePermission(ctx context.Context) error {
	return c.postJSON(ctx, "delete_permission", "/api/delete_permission/", nil, nil)
}

func (c *Client) DeleteUploadSpace(ctx context.Context) error {
	return c.postJSON(ctx, "delete_upload_space", "/api/delete_upload_space/", nil, nil)
}

func (c *Client) UpdateFile(ctx context.Context) error {
	return c.postJSON(ctx, "update_file", "/api/update_file/", nil, nil)
}

func (c *Client) UpdatePermissionIDsOnResource(ctx context.Context) error {
	return c.postJSON(ctx, "update_permission_ids_on_resource", "/api/update_permission_ids_on_resource/", nil, nil)
}

func (c *Client) GetFileInfo(ctx context.Context, fileID string) (*File, error) {
	var file File
	if err := c.getJSON(ctx, "get_file_info", "/api/get_file_info/"+url.PathEscape(fileID), &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// GetFileInfosByGroupID lists one page of a group's files.
func (c *Client) GetFileInfosByGroupID(ctx context.Context, groupID string, p ListParams) ([]File, error) {
	var files []File
	path := "/api/get_file_infos_by_group_id/" + url.PathEscape(groupID) + listQuery(p)
	if err := c.getJSON(ctx, "get_file_infos_by_group_id", path, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetFile returns the raw content of a file as text.
func (c *Client) GetFile(ctx context.Context, fileID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/get_file/"+url.PathEscape(fileID), nil)
	if err != nil {
		return "", err
	}
	_, data, err := c.send("get_file", req)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) GetOwnFileGroups(ctx context.Context) ([]FileGroup, error) {
	var groups []FileGroup
	if err := c.getJSON(ctx, "get_own_file_groups", "/api/get_own_file_groups/", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) GetOwnPermissions(ctx context.Context) ([]Permission, error) {
	var permissions []Permission
	if err := c.getJSON(ctx, "get_own_permissions", "/api/get_own_permissions/", &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

func (c *Client) GetUserInfo(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "get_user_info", "/api/get_user_info/", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserList(ctx context.Context, p ListParams) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "get_user_list", "/api/get_user_list/"+listQuery(p), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUserGroupList(ctx context.Context, p ListParams) ([]UserGroup, error) {
	var groups []UserGroup
	if err := c.getJSON(ctx, "get_user_group_list", "/api/get_user_group_list/"+listQuery(p), &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateFileInfos changes one field of a file. Unlike the other calls it fails with an
// *APIError when the service does not answer 2xx.
func (c *Client) UpdateFileInfos(ctx context.Context, fileID string, field FileInfoField) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/update_file_infos/", UpdateFileInfosRequest{
		FileID: fileID,
		Field:  field,
	})
	if err != nil {
		return err
	}
	resp, _, err := c.send("update_file_infos", req)
	if err != nil {
		return err
	}
	if !isOK(resp.StatusCode) {
		return &APIError{
			Op:         "update_file_infos",
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Message:    "updating file infos",
		}
	}
	return nil
}

func (c *Client) UpdateFileGroup(ctx context.Context, update UpdateFileGroupRequest) error {
	return c.postJSON(ctx, "update_file_group", "/api/update_file_group/", update, nil)
}
