package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/services"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/storage"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB     *gorm.DB
	Store  storage.Store
	Issuer *session.Issuer
	Config *config.Config
}

// RegisterRoutes mounts the identity, session and file service routes.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	access := services.NewAccessService(deps.DB)
	groups := services.NewGroupService(deps.DB)

	deviceAuthHandler := NewDeviceAuthHandler(deps.DB, deps.Issuer, deps.Config.Identity)
	sessionHandler := NewSessionHandler(deps.Issuer, deps.Config.Session.SecureCookie)
	usersHandler := NewUsersHandler(deps.DB, deps.Config.Limits)
	filesHandler := NewFilesHandler(deps.DB, deps.Store, access, groups)
	groupsHandler := NewGroupsHandler(deps.DB, groups)
	permissionsHandler := NewPermissionsHandler(deps.DB)
	sessions := middleware.NewSessionMiddleware(deps.DB, deps.Issuer)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	oauth := app.Group("/oauth")
	oauth.Post("/device/code", deviceAuthHandler.RequestCode)
	oauth.Post("/token", deviceAuthHandler.PollToken)
	oauth.Get("/device", deviceAuthHandler.VerificationPage)
	oauth.Post("/device", deviceAuthHandler.Decide)

	api := app.Group("/api")
	api.Post("/session/", sessionHandler.Create)

	api.Post("/create_user/", sessions.RequireSession, usersHandler.CreateUser)

	registered := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{sessions.RequireSession, middleware.RequireUser, h}
	}

	api.Post("/search/", registered(filesHandler.Search)...)
	api.Post("/create_file/", registered(filesHandler.CreateFile)...)
	api.Get("/get_file/:id", registered(filesHandler.GetFile)...)
	api.Get("/get_file_info/:id", registered(filesHandler.GetFileInfo)...)
	api.Get("/get_file_infos_by_group_id/:id", registered(filesHandler.GetFileInfosByGroupID)...)
	api.Post("/update_file_infos/", registered(filesHandler.UpdateFileInfos)...)

	api.Post("/create_group/", registered(groupsHandler.CreateGroup)...)
	api.Get("/get_own_file_groups/", registered(groupsHandler.GetOwnFileGroups)...)
	api.Post("/update_file_group/", registered(groupsHandler.UpdateFileGroup)...)

	api.Post("/create_permission/", registered(permissionsHandler.CreatePermission)...)
	api.Get("/get_own_permissions/", registered(permissionsHandler.GetOwnPermissions)...)

	api.Get("/get_user_info/", registered(usersHandler.GetUserInfo)...)
	api.Get("/get_user_list/", registered(usersHandler.GetUserList)...)
	api.Get("/get_user_group_list/", registered(usersHandler.GetUserGroupList)...)
	api.Post("/create_user_group/", registered(usersHandler.CreateUserGroup)...)
	api.Post("/add_user_group_member/", registered(usersHandler.AddUserGroupMember)...)
	api.Post("/create_upload_space/", registered(usersHandler.CreateUploadSpace)...)

	for _, path := range []string{
		"/delete_file/",
		"/delete_group/",
		"/delete_permission/",
		"/delete_upload_space/",
		"/update_file/",
		"/update_permission_ids_on_resource/",
	} {
		api.Post(path, registered(ResourceIDRequired)...)
	}
}
