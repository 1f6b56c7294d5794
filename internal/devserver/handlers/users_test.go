package handlers

import (
	"net/http"
	"testing"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
)

func TestCreateUser(t *testing.T) {
	env := setupTestEnv(t, func(cfg *config.Config) {
		cfg.Limits = config.LimitsConfig{MaxStorage: 1024, MaxFiles: 3}
	})

	t.Run("requires a session", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_user/", nil, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
	})

	headers := env.sessionHeaders(t, "alice")
	resp := performRequest(t, env.app, http.MethodPost, "/api/create_user/", nil, headers)
	assertStatus(t, resp, http.StatusCreated)
	var first filez.User
	decodeJSON(t, resp, &first)

	t.Run("first user is an admin with configured limits", func(t *testing.T) {
		if first.Role != filez.UserRoleAdmin || first.Status != filez.UserStatusActive {
			t.Errorf("unexpected role/status %s/%s", first.Role, first.Status)
		}
		if first.Email == nil || *first.Email != "alice@filez.local" {
			t.Errorf("unexpected email %v", first.Email)
		}
		if first.Limits == nil || first.Limits.MaxStorage != 1024 || first.Limits.MaxFiles != 3 {
			t.Errorf("unexpected limits %+v", first.Limits)
		}
	})

	t.Run("registering again returns the same user", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/create_user/", nil, headers)
		assertStatus(t, resp, http.StatusOK)
		var again filez.User
		decodeJSON(t, resp, &again)
		if again.ID != first.ID {
			t.Errorf("expected id %s, got %s", first.ID, again.ID)
		}
	})

	t.Run("later users are regular users", func(t *testing.T) {
		bob, _ := env.registerUser(t, "bob")
		if bob.Role != filez.UserRoleUser {
			t.Errorf("expected User role, got %s", bob.Role)
		}
	})

	t.Run("get_user_info returns the session user", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_info/", nil, headers)
		assertStatus(t, resp, http.StatusOK)
		var me filez.User
		decodeJSON(t, resp, &me)
		if me.ID != first.ID {
			t.Errorf("expected %s, got %s", first.ID, me.ID)
		}
	})
}

func TestGetUserList(t *testing.T) {
	env := setupTestEnv(t)
	_, headers := env.registerUser(t, "carol")
	env.registerUser(t, "alice")
	env.registerUser(t, "bob")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all users in creation order", "?i=0", []string{"carol", "alice", "bob"}},
		{"paged", "?i=1&l=1", []string{"alice"}},
		{"sorted by name", "?i=0&f=name&o=Ascending", []string{"alice", "bob", "carol"}},
		{"sorted descending", "?i=0&l=2&f=name&o=Descending", []string{"carol", "bob"}},
		{"past the end", "?i=5", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_list/"+tt.query, nil, headers)
			assertStatus(t, resp, http.StatusOK)
			var users []filez.User
			decodeJSON(t, resp, &users)
			if len(users) != len(tt.want) {
				t.Fatalf("expected %d users, got %d", len(tt.want), len(users))
			}
			for i, name := range tt.want {
				if users[i].Name == nil || *users[i].Name != name {
					t.Errorf("position %d: expected %s, got %v", i, name, users[i].Name)
				}
			}
		})
	}

	t.Run("invalid paging", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_list/?i=x", nil, headers)
		assertError(t, resp, http.StatusBadRequest, "invalid from index")
	})

	t.Run("invalid sort field", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_list/?i=0&f=age", nil, headers)
		assertError(t, resp, http.StatusBadRequest, "invalid sort field")
	})
}

func TestUserGroups(t *testing.T) {
	env := setupTestEnv(t)
	_, alice := env.registerUser(t, "alice")
	bob, bobHeaders := env.registerUser(t, "bob")
	_, carol := env.registerUser(t, "carol")

	createUserGroup := func(headers map[string]string, name string, visibility filez.UserGroupVisibility) filez.UserGroup {
		t.Helper()
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/create_user_group/", map[string]any{
			"name":       name,
			"visibility": visibility,
		}, headers)
		assertStatus(t, resp, http.StatusCreated)
		var group filez.UserGroup
		decodeJSON(t, resp, &group)
		return group
	}

	private := createUserGroup(alice, "team", filez.UserGroupPrivate)
	createUserGroup(alice, "everyone", filez.UserGroupPublic)

	listNames := func(headers map[string]string) []string {
		t.Helper()
		resp := performRequest(t, env.app, http.MethodGet, "/api/get_user_group_list/?i=0&f=name", nil, headers)
		assertStatus(t, resp, http.StatusOK)
		var groups []filez.UserGroup
		decodeJSON(t, resp, &groups)
		names := []string{}
		for _, g := range groups {
			names = append(names, g.Name)
		}
		return names
	}

	t.Run("owner sees private and public groups", func(t *testing.T) {
		if names := listNames(alice); len(names) != 2 || names[0] != "everyone" || names[1] != "team" {
			t.Errorf("unexpected groups %v", names)
		}
	})

	t.Run("others only see public groups", func(t *testing.T) {
		if names := listNames(carol); len(names) != 1 || names[0] != "everyone" {
			t.Errorf("unexpected groups %v", names)
		}
	})

	t.Run("members see the private group", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/add_user_group_member/", map[string]string{
			"user_group_id": private.ID,
			"user_id":       bob.ID,
		}, alice)
		assertStatus(t, resp, http.StatusOK)
		var member filez.User
		decodeJSON(t, resp, &member)
		if len(member.UserGroupIDs) != 1 || member.UserGroupIDs[0] != private.ID {
			t.Errorf("expected membership in %s, got %v", private.ID, member.UserGroupIDs)
		}
		if names := listNames(bobHeaders); len(names) != 2 {
			t.Errorf("expected 2 groups for member, got %v", names)
		}
	})

	t.Run("only the owner adds members", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/add_user_group_member/", map[string]string{
			"user_group_id": private.ID,
			"user_id":       bob.ID,
		}, carol)
		assertError(t, resp, http.StatusForbidden, "access denied")
	})

	t.Run("rejects unknown visibility", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/create_user_group/", map[string]any{
			"name":       "x",
			"visibility": "Secret",
		}, alice)
		assertError(t, resp, http.StatusBadRequest, "visibility must be Public or Private")
	})
}

func TestCreateUploadSpace(t *testing.T) {
	env := setupTestEnv(t, func(cfg *config.Config) {
		cfg.Limits = config.LimitsConfig{MaxStorage: 100, MaxFiles: 5}
	})
	_, headers := env.registerUser(t, "alice")

	resp := performRequest(t, env.app, http.MethodPost, "/api/create_upload_space/", nil, headers)
	assertStatus(t, resp, http.StatusCreated)
	body := decodeJSONMap(t, resp)
	if id, _ := body["upload_space_id"].(string); id == "" {
		t.Errorf("expected upload_space_id, got %v", body)
	}
}

func TestResourceIDRequired(t *testing.T) {
	env := setupTestEnv(t)
	_, headers := env.registerUser(t, "alice")

	for _, path := range []string{
		"/api/delete_file/",
		"/api/delete_group/",
		"/api/delete_permission/",
		"/api/delete_upload_space/",
		"/api/update_file/",
		"/api/update_permission_ids_on_resource/",
	} {
		t.Run(path, func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodPost, path, nil, headers)
			assertError(t, resp, http.StatusBadRequest, "resource id required")
		})
	}
}
