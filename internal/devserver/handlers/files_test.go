package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
)

func TestCreateAndGetFile(t *testing.T) {
	env := setupTestEnv(t)
	alice, headers := env.registerUser(t, "alice")

	created := int64(1700000000)
	file := env.uploadFile(t, headers, filez.CreateFileRequest{
		Name:     "hello.txt",
		MimeType: "text/plain",
		Created:  &created,
	}, "hello world")

	t.Run("create_file stores metadata", func(t *testing.T) {
		sum := sha256.Sum256([]byte("hello world"))
		if file.OwnerID != alice.ID || file.Size != 11 || file.Created != created {
			t.Errorf("unexpected file %+v", file)
		}
		if file.SHA256 == nil || *file.SHA256 != hex.EncodeToString(sum[:]) {
			t.Errorf("unexpected checksum %v", file.SHA256)
		}
		if file.Keywords == nil || file.StaticFileGroupIDs == nil || file.DynamicFileGroupIDs == nil {
			t.Errorf("expected empty lists rather than null, got %+v", file)
		}
	})

	t.Run("get_file returns the content", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file/"+file.ID, nil, headers)
		assertStatus(t, resp, http.StatusOK)
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "hello world" {
			t.Errorf("expected content, got %q", string(body))
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("expected text/plain, got %s", ct)
		}
	})

	t.Run("get_file_info tracks access", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file_info/"+file.ID, nil, headers)
		assertStatus(t, resp, http.StatusOK)
		var info filez.File
		decodeJSON(t, resp, &info)
		if info.AccessedCount != 1 || info.Accessed == nil {
			t.Errorf("expected one recorded access, got count=%d accessed=%v", info.AccessedCount, info.Accessed)
		}
	})

	t.Run("quota usage is recorded", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_info/", nil, headers)
		var me filez.User
		decodeJSON(t, resp, &me)
		if me.Limits.UsedFiles != 1 || me.Limits.UsedStorage != 11 {
			t.Errorf("unexpected usage %+v", me.Limits)
		}
	})

	t.Run("other users are denied", func(t *testing.T) {
		_, bob := env.registerUser(t, "bob")
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file/"+file.ID, nil, bob)
		assertError(t, resp, http.StatusForbidden, "access denied")
		resp = performRequest(t, env.app, http.MethodGet, "/api/get_file_info/"+file.ID, nil, bob)
		assertError(t, resp, http.StatusForbidden, "access denied")
	})

	t.Run("unknown file", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file_info/00000000-0000-0000-0000-000000000000", nil, headers)
		assertError(t, resp, http.StatusNotFound, "file not found")
		resp = performRequest(t, env.app, http.MethodGet, "/api/get_file/not-a-uuid", nil, headers)
		assertError(t, resp, http.StatusNotFound, "file not found")
	})
}

func TestCreateFileValidation(t *testing.T) {
	env := setupTestEnv(t, func(cfg *config.Config) {
		cfg.Limits = config.LimitsConfig{MaxStorage: 10}
	})
	_, headers := env.registerUser(t, "alice")
	_, bob := env.registerUser(t, "bob")

	t.Run("missing metadata header", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString("x"), headers)
		assertError(t, resp, http.StatusBadRequest, "invalid X-Filez-Metadata header")
	})

	t.Run("name is required", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString("x"),
			withMetadata(t, headers, filez.CreateFileRequest{Name: "  "}))
		assertError(t, resp, http.StatusBadRequest, "name is required")
	})

	t.Run("storage limit", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString("more than ten bytes"),
			withMetadata(t, headers, filez.CreateFileRequest{Name: "big.bin"}))
		assertError(t, resp, http.StatusForbidden, "storage limit exceeded")
	})

	t.Run("default mime type", func(t *testing.T) {
		file := env.uploadFile(t, headers, filez.CreateFileRequest{Name: "blob"}, "x")
		if file.MimeType != "application/octet-stream" {
			t.Errorf("expected octet-stream, got %s", file.MimeType)
		}
	})

	t.Run("static groups must belong to the uploader", func(t *testing.T) {
		groupID := env.createGroup(t, bob, filez.CreateGroupRequest{Name: "bobs", GroupType: filez.FileGroupTypeStatic})
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString("x"),
			withMetadata(t, headers, filez.CreateFileRequest{Name: "a", StaticFileGroupIDs: []string{groupID}}))
		assertError(t, resp, http.StatusForbidden, "group belongs to another user")
	})

	t.Run("files cannot be added to dynamic groups", func(t *testing.T) {
		groupID := env.createGroup(t, headers, filez.CreateGroupRequest{
			Name:              "dyn",
			GroupType:         filez.FileGroupTypeDynamic,
			DynamicGroupRules: &filez.FilterRule{Field: "name", RuleType: filez.FilterRuleMatchRegex, Value: "."},
		})
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_file/", bytes.NewBufferString("x"),
			withMetadata(t, headers, filez.CreateFileRequest{Name: "a", StaticFileGroupIDs: []string{groupID}}))
		assertError(t, resp, http.StatusBadRequest, "files can only be added to static groups")
	})
}

func TestSharingThroughGroupPermission(t *testing.T) {
	env := setupTestEnv(t)
	_, alice := env.registerUser(t, "alice")
	bob, bobHeaders := env.registerUser(t, "bob")
	_, carol := env.registerUser(t, "carol")

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/create_permission/", filez.CreatePermissionRequest{
		Name:    "bob reads",
		UseType: filez.PermissionUseMultiple,
		Content: filez.PermissionContent{
			Type: filez.ResourceFileGroup,
			ACL: &filez.ACL{
				What: []string{filez.ActionGetFile, filez.ActionGetFileInfo, filez.ActionListGroupItems},
				Who:  filez.ACLWho{Users: []string{bob.ID}},
			},
		},
	}, alice)
	assertStatus(t, resp, http.StatusCreated)
	var permission filez.CreatePermissionResponse
	decodeJSON(t, resp, &permission)

	groupID := env.createGroup(t, alice, filez.CreateGroupRequest{
		Name:          "shared",
		GroupType:     filez.FileGroupTypeStatic,
		PermissionIDs: []string{permission.PermissionID},
	})
	file := env.uploadFile(t, alice, filez.CreateFileRequest{Name: "shared.txt", StaticFileGroupIDs: []string{groupID}}, "shared")

	t.Run("listed user reads the file", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file/"+file.ID, nil, bobHeaders)
		assertStatus(t, resp, http.StatusOK)
		resp = performRequest(t, env.app, http.MethodGet, "/api/get_file_infos_by_group_id/"+groupID+"?i=0", nil, bobHeaders)
		assertStatus(t, resp, http.StatusOK)
		var files []filez.File
		decodeJSON(t, resp, &files)
		if len(files) != 1 || files[0].ID != file.ID {
			t.Errorf("expected shared file, got %+v", files)
		}
	})

	t.Run("listed user cannot rename", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/update_file_infos/", filez.UpdateFileInfosRequest{
			FileID: file.ID,
			Field:  filez.NameField("mine.txt"),
		}, bobHeaders)
		assertError(t, resp, http.StatusForbidden, "access denied")
	})

	t.Run("unlisted user is denied", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file/"+file.ID, nil, carol)
		assertStatus(t, resp, http.StatusForbidden)
		resp = performRequest(t, env.app, http.MethodGet, "/api/get_file_infos_by_group_id/"+groupID+"?i=0", nil, carol)
		assertStatus(t, resp, http.StatusForbidden)
	})
}

func TestGetFileInfosByGroupID(t *testing.T) {
	env := setupTestEnv(t)
	_, headers := env.registerUser(t, "alice")
	groupID := env.createGroup(t, headers, filez.CreateGroupRequest{Name: "docs", GroupType: filez.FileGroupTypeStatic})

	for _, f := range []struct {
		name    string
		content string
	}{
		{"b.txt", "bb"},
		{"a.txt", "aaa"},
		{"c.txt", "c"},
	} {
		env.uploadFile(t, headers, filez.CreateFileRequest{Name: f.name, MimeType: "text/plain", StaticFileGroupIDs: []string{groupID}}, f.content)
	}
	env.uploadFile(t, headers, filez.CreateFileRequest{Name: "outside.txt"}, "x")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"insertion order without sort", "?i=0", []string{"b.txt", "a.txt", "c.txt"}},
		{"sort by name", "?i=0&f=name&o=Ascending", []string{"a.txt", "b.txt", "c.txt"}},
		{"sort by size descending", "?i=0&f=size&o=Descending", []string{"a.txt", "b.txt", "c.txt"}},
		{"page", "?i=1&l=1&f=name", []string{"b.txt"}},
		{"zero limit", "?i=0&l=0", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, "/api/get_file_infos_by_group_id/"+groupID+tt.query, nil, headers)
			assertStatus(t, resp, http.StatusOK)
			var files []filez.File
			decodeJSON(t, resp, &files)
			if len(files) != len(tt.want) {
				t.Fatalf("expected %d files, got %d", len(tt.want), len(files))
			}
			for i, name := range tt.want {
				if files[i].Name != name {
					t.Errorf("position %d: expected %s, got %s", i, name, files[i].Name)
				}
			}
		})
	}

	t.Run("invalid sort field", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file_infos_by_group_id/"+groupID+"?i=0&f=colour", nil, headers)
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("unknown group", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_file_infos_by_group_id/00000000-0000-0000-0000-000000000000?i=0", nil, headers)
		assertError(t, resp, http.StatusNotFound, "group not found")
	})
}

func TestSearch(t *testing.T) {
	env := setupTestEnv(t)
	_, headers := env.registerUser(t, "alice")
	_, bob := env.registerUser(t, "bob")
	groupID := env.createGroup(t, headers, filez.CreateGroupRequest{Name: "docs", GroupType: filez.FileGroupTypeStatic})

	env.uploadFile(t, headers, filez.CreateFileRequest{Name: "Report-2023.pdf", MimeType: "application/pdf", StaticFileGroupIDs: []string{groupID}}, "x")
	env.uploadFile(t, headers, filez.CreateFileRequest{Name: "report-draft.txt", MimeType: "text/plain"}, "x")
	env.uploadFile(t, headers, filez.CreateFileRequest{Name: "photo.png", MimeType: "image/png"}, "x")
	env.uploadFile(t, bob, filez.CreateFileRequest{Name: "bobs-report.txt", MimeType: "text/plain"}, "x")

	search := func(headers map[string]string, req filez.SearchRequest) []filez.File {
		t.Helper()
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/search/", req, headers)
		assertStatus(t, resp, http.StatusOK)
		var files []filez.File
		decodeJSON(t, resp, &files)
		return files
	}

	t.Run("case-insensitive over own files", func(t *testing.T) {
		if got := search(headers, filez.SearchRequest{Query: "REPORT"}); len(got) != 2 {
			t.Errorf("expected 2 matches, got %d", len(got))
		}
	})

	t.Run("without a group only own files are searched", func(t *testing.T) {
		for _, f := range search(headers, filez.SearchRequest{Query: "report"}) {
			if f.Name == "bobs-report.txt" {
				t.Errorf("expected another user's file to be excluded, got %+v", f)
			}
		}
		if got := search(bob, filez.SearchRequest{Query: "report"}); len(got) != 1 || got[0].Name != "bobs-report.txt" {
			t.Errorf("expected only bob's own report, got %+v", got)
		}
	})

	t.Run("limit", func(t *testing.T) {
		if got := search(headers, filez.SearchRequest{Query: "report", Limit: 1}); len(got) != 1 {
			t.Errorf("expected 1 match, got %d", len(got))
		}
	})

	t.Run("within a group", func(t *testing.T) {
		got := search(headers, filez.SearchRequest{GroupID: groupID, Query: "report"})
		if len(got) != 1 || got[0].Name != "Report-2023.pdf" {
			t.Errorf("expected only the grouped report, got %+v", got)
		}
	})

	t.Run("mime type", func(t *testing.T) {
		if got := search(headers, filez.SearchRequest{Query: "image/"}); len(got) != 1 {
			t.Errorf("expected 1 match, got %d", len(got))
		}
	})

	t.Run("foreign group is denied", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/search/", filez.SearchRequest{GroupID: groupID, Query: "x"}, bob)
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("invalid body", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/search/", bytes.NewBufferString("{"), headers)
		assertError(t, resp, http.StatusBadRequest, "invalid request body")
	})
}

func TestUpdateFileInfos(t *testing.T) {
	env := setupTestEnv(t)
	alice, headers := env.registerUser(t, "alice")
	bob, bobHeaders := env.registerUser(t, "bob")
	groupID := env.createGroup(t, headers, filez.CreateGroupRequest{Name: "docs", GroupType: filez.FileGroupTypeStatic})
	file := env.uploadFile(t, headers, filez.CreateFileRequest{Name: "a.txt", MimeType: "text/plain"}, "x")

	update := func(headers map[string]string, field filez.FileInfoField) *http.Response {
		t.Helper()
		return performJSONRequest(t, env.app, http.MethodPost, "/api/update_file_infos/", filez.UpdateFileInfosRequest{
			FileID: file.ID,
			Field:  field,
		}, headers)
	}

	t.Run("rename", func(t *testing.T) {
		resp := update(headers, filez.NameField("b.txt"))
		assertStatus(t, resp, http.StatusOK)
		var updated filez.File
		decodeJSON(t, resp, &updated)
		if updated.Name != "b.txt" {
			t.Errorf("expected b.txt, got %s", updated.Name)
		}
	})

	t.Run("keywords", func(t *testing.T) {
		resp := update(headers, filez.KeywordsField([]string{"work", "2023"}))
		assertStatus(t, resp, http.StatusOK)
		var updated filez.File
		decodeJSON(t, resp, &updated)
		if len(updated.Keywords) != 2 {
			t.Errorf("expected 2 keywords, got %v", updated.Keywords)
		}
	})

	t.Run("mime type", func(t *testing.T) {
		resp := update(headers, filez.MimeTypeField("text/markdown"))
		assertStatus(t, resp, http.StatusOK)
	})

	t.Run("static groups", func(t *testing.T) {
		resp := update(headers, filez.StaticFileGroupIDsField([]string{groupID}))
		assertStatus(t, resp, http.StatusOK)
		var updated filez.File
		decodeJSON(t, resp, &updated)
		if len(updated.StaticFileGroupIDs) != 1 || updated.StaticFileGroupIDs[0] != groupID {
			t.Errorf("unexpected groups %v", updated.StaticFileGroupIDs)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		assertError(t, update(headers, filez.NameField(" ")), http.StatusBadRequest, "name is required")
	})

	t.Run("unknown field kind", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/update_file_infos/",
			bytes.NewBufferString(`{"file_id":"`+file.ID+`","field":{"Colour":"red"}}`),
			map[string]string{"Content-Type": "application/json", "Cookie": headers["Cookie"]})
		assertError(t, resp, http.StatusBadRequest, "invalid request body")
	})

	t.Run("unknown file", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/update_file_infos/", filez.UpdateFileInfosRequest{
			FileID: "00000000-0000-0000-0000-000000000000",
			Field:  filez.NameField("x"),
		}, headers)
		assertError(t, resp, http.StatusNotFound, "file not found")
	})

	t.Run("other users are denied", func(t *testing.T) {
		assertError(t, update(bobHeaders, filez.NameField("stolen")), http.StatusForbidden, "access denied")
	})

	t.Run("owner transfers the file", func(t *testing.T) {
		resp := update(headers, filez.OwnerIDField(bob.ID))
		assertStatus(t, resp, http.StatusOK)
		var updated filez.File
		decodeJSON(t, resp, &updated)
		if updated.OwnerID != bob.ID {
			t.Errorf("expected owner %s, got %s", bob.ID, updated.OwnerID)
		}
		assertStatus(t, update(bobHeaders, filez.NameField("now-mine.txt")), http.StatusOK)
	})

	t.Run("transfer moves the quota counters", func(t *testing.T) {
		usage := func(id string) (int64, int64) {
			t.Helper()
			var user models.User
			if err := env.db.First(&user, "id = ?", id).Error; err != nil {
				t.Fatalf("loading user %s: %v", id, err)
			}
			return user.UsedStorage, user.UsedFiles
		}
		if used, files := usage(alice.ID); used != 0 || files != 0 {
			t.Errorf("expected previous owner at 0 bytes / 0 files, got %d / %d", used, files)
		}
		if used, files := usage(bob.ID); used != file.Size || files != 1 {
			t.Errorf("expected new owner at %d bytes / 1 file, got %d / %d", file.Size, used, files)
		}
	})
}

func TestGetFileLogsAccessRecordFailure(t *testing.T) {
	env := setupTestEnv(t)
	_, headers := env.registerUser(t, "alice")
	file := env.uploadFile(t, headers, filez.CreateFileRequest{Name: "a.txt", MimeType: "text/plain"}, "alpha")

	logs := &bytes.Buffer{}
	logger.SetOutput(logs)
	t.Cleanup(func() { logger.SetOutput(io.Discard) })

	if err := env.db.Migrator().DropColumn(&models.File{}, "accessed_count"); err != nil {
		t.Fatalf("dropping column: %v", err)
	}

	resp := performRequest(t, env.app, http.MethodGet, "/api/get_file/"+file.ID, nil, headers)
	assertStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "alpha" {
		t.Errorf("expected content alpha, got %q", body)
	}
	if !strings.Contains(logs.String(), "file_access_record_failed") {
		t.Errorf("expected access record failure to be logged, got %s", logs.String())
	}
}
