package handlers

import (
	"errors"

	"kalam-backend/internal/config"
	"kalam-backend/internal/middleware"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/services"
	"kalam-backend/internal/session"
	"kalam-backend/internal/tokens"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Services bundles what the HTTP layer talks to.
type Services struct {
	Auth          *services.AuthService
	Events        *services.EventService
	Cart          *services.CartService
	Orders        *services.OrderService
	Payments      *services.PaymentService
	Teams         *services.TeamService
	Registrations *services.RegistrationService
	Admin         *services.AdminService
}

type Handler struct {
	authSvc    *services.AuthService
	eventSvc   *services.EventService
	cartSvc    *services.CartService
	orderSvc   *services.OrderService
	paymentSvc *services.PaymentService
	teamSvc    *services.TeamService
	regSvc     *services.RegistrationService
	adminSvc   *services.AdminService
	sessions   *session.Manager
	authn      *middleware.Authenticator
	cfg        *config.Config
}

func NewHandler(svc Services, issuer *tokens.Issuer, sessions *session.Manager, cfg *config.Config) *Handler {
	return &Handler{
		authSvc:    svc.Auth,
		eventSvc:   svc.Events,
		cartSvc:    svc.Cart,
		orderSvc:   svc.Orders,
		paymentSvc: svc.Payments,
		teamSvc:    svc.Teams,
		regSvc:     svc.Registrations,
		adminSvc:   svc.Admin,
		sessions:   sessions,
		authn:      middleware.NewAuthenticator(issuer, sessions, svc.Auth),
		cfg:        cfg,
	}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	userAuth := h.authn.User()

	auth := router.Group("/auth")
	{
		auth.Post("/register", h.Register)
		auth.Post("/login", h.Login)
		auth.Post("/refresh", h.Refresh)
		auth.Post("/logout", userAuth, h.Logout)
		auth.Post("/forgot-password", h.ForgotPassword)
		auth.Post("/reset-password", h.ResetPassword)
	}

	users := router.Group("/users", userAuth)
	{
		users.Get("/me", h.GetMe)
		users.Patch("/me", h.UpdateMe)
	}

	// Catalog (public)
	router.Get("/events", h.ListEvents)
	router.Get("/events/:slug", h.GetEvent)
	router.Get("/categories", h.ListCategories)
	router.Get("/departments", h.ListDepartments)
	router.Get("/announcements", h.ListAnnouncements)

	cart := router.Group("/cart", userAuth)
	{
		cart.Get("/", h.GetCart)
		cart.Post("/", h.AddToCart)
		cart.Delete("/", h.RemoveFromCart)
	}

	orders := router.Group("/orders", userAuth)
	{
		orders.Post("/", h.CreateOrder)
		orders.Get("/", h.ListOrders)
		orders.Post("/confirm", h.ConfirmOrder)
		orders.Get("/:id", h.GetOrder)
		orders.Patch("/:id", h.UpdateOrder)
		orders.Patch("/:id/cancel", h.CancelOrder)
	}

	payments := router.Group("/payments")
	{
		// The gateway posts here without credentials.
		payments.Post("/callback", h.PaymentCallback)
		payments.Post("/initiate", userAuth, h.InitiatePayment)
		payments.Get("/status/:id", userAuth, h.PaymentStatus)
	}

	teams := router.Group("/teams", userAuth)
	{
		teams.Post("/", h.CreateTeam)
		teams.Get("/", h.ListMyTeams)
	}

	regs := router.Group("/registrations", userAuth)
	{
		regs.Get("/", h.ListMyRegistrations)
		regs.Get("/:id/ticket", h.GetTicket)
	}

	h.registerAdminRoutes(router.Group("/admin"))
}

func (h *Handler) registerAdminRoutes(admin fiber.Router) {
	adminAuth := h.authn.Admin()
	can := middleware.Require

	admin.Post("/auth/login", h.AdminLogin)
	admin.Post("/auth/logout", adminAuth, h.AdminLogout)
	admin.Get("/auth/me", adminAuth, h.AdminMe)

	admin.Get("/stats", adminAuth, can(permissions.Stats, permissions.Read), h.AdminStats)

	users := admin.Group("/users", adminAuth)
	crud(users, permissions.Users, h.AdminListUsers, h.AdminGetUser, h.AdminCreateUser, h.AdminUpdateUser, h.AdminDeleteUser)

	admins := admin.Group("/admins", adminAuth, middleware.RequireSuperadmin)
	crud(admins, permissions.Admins, h.AdminListAdmins, h.AdminGetAdmin, h.AdminCreateAdmin, h.AdminUpdateAdmin, h.AdminDeleteAdmin)

	departments := admin.Group("/departments", adminAuth)
	crud(departments, permissions.Departments, h.AdminListDepartments, h.AdminGetDepartment, h.AdminCreateDepartment, h.AdminUpdateDepartment, h.AdminDeleteDepartment)

	categories := admin.Group("/categories", adminAuth)
	crud(categories, permissions.Categories, h.AdminListCategories, h.AdminGetCategory, h.AdminCreateCategory, h.AdminUpdateCategory, h.AdminDeleteCategory)

	events := admin.Group("/events", adminAuth)
	crud(events, permissions.Events, h.AdminListEvents, h.AdminGetEvent, h.AdminCreateEvent, h.AdminUpdateEvent, h.AdminDeleteEvent)
	events.Post("/:id/poster", can(permissions.Events, permissions.Update), h.AdminUploadPoster)

	announcements := admin.Group("/announcements", adminAuth)
	crud(announcements, permissions.Announcements, h.AdminListAnnouncements, h.AdminGetAnnouncement, h.AdminCreateAnnouncement, h.AdminUpdateAnnouncement, h.AdminDeleteAnnouncement)

	registrations := admin.Group("/registrations", adminAuth)
	crud(registrations, permissions.Registrations, h.AdminListRegistrations, h.AdminGetRegistration, h.AdminCreateRegistration, h.AdminUpdateRegistration, h.AdminDeleteRegistration)

	orders := admin.Group("/orders", adminAuth)
	{
		orders.Get("/", can(permissions.Orders, permissions.Read), h.AdminListOrders)
		orders.Get("/:id", can(permissions.Orders, permissions.Read), h.AdminGetOrder)
		orders.Patch("/:id", can(permissions.Orders, permissions.Update), h.AdminUpdateOrder)
	}

	payments := admin.Group("/payments", adminAuth)
	{
		payments.Get("/", can(permissions.Payments, permissions.Read), h.AdminListPayments)
		payments.Get("/:id", can(permissions.Payments, permissions.Read), h.AdminGetPayment)
		payments.Get("/:id/deliveries", can(permissions.Payments, permissions.Read), h.AdminPaymentDeliveries)
		payments.Post("/:id/refund", can(permissions.Payments, permissions.Update), h.AdminRefundPayment)
	}

	teams := admin.Group("/teams", adminAuth)
	{
		teams.Get("/", can(permissions.Teams, permissions.Read), h.AdminListTeams)
		teams.Get("/:id", can(permissions.Teams, permissions.Read), h.AdminGetTeam)
	}
}

// crud mounts the five standard routes of a resource, each behind its
// capability check.
func crud(r fiber.Router, res permissions.Resource, list, get, create, update, del fiber.Handler) {
	r.Get("/", middleware.Require(res, permissions.Read), list)
	r.Get("/:id", middleware.Require(res, permissions.Read), get)
	r.Post("/", middleware.Require(res, permissions.Create), create)
	r.Patch("/:id", middleware.Require(res, permissions.Update), update)
	r.Delete("/:id", middleware.Require(res, permissions.Delete), del)
}

// ErrorHandler renders every error returned by a handler in the standard
// envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status := svcErr.HTTPStatus()
		message := svcErr.Message
		if status >= fiber.StatusInternalServerError {
			logRequestError(c, err)
			message = "Internal server error"
		}
		return utils.ErrorWithCode(c, status, svcErr.Code, message, svcErr.Fields)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			logRequestError(c, err)
		}
		return utils.ErrorWithCode(c, fe.Code, codeForStatus(fe.Code), fe.Message, nil)
	}

	logRequestError(c, err)
	return utils.ErrorWithCode(c, fiber.StatusInternalServerError, services.CodeInternal, "Internal server error", nil)
}

func logRequestError(c *fiber.Ctx, err error) {
	logrus.WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).WithError(err).Error("request failed")
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return services.CodeValidation
	case fiber.StatusUnauthorized:
		return services.CodeUnauthorized
	case fiber.StatusForbidden:
		return services.CodeForbidden
	case fiber.StatusNotFound:
		return services.CodeNotFound
	case fiber.StatusConflict:
		return services.CodeConflict
	}
	if status >= fiber.StatusInternalServerError {
		return services.CodeInternal
	}
	return ""
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &services.Error{
			Code:    services.CodeValidation,
			Message: "Invalid " + name,
			Fields:  map[string]string{name: "must be a UUID"},
		}
	}
	return id, nil
}

// queryUUID returns nil when the parameter is absent.
func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &services.Error{
			Code:    services.CodeValidation,
			Message: "Invalid " + name,
			Fields:  map[string]string{name: "must be a UUID"},
		}
	}
	return &id, nil
}

func queryBool(c *fiber.Ctx, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func paged(c *fiber.Ctx, items interface{}, total int64, params repositories.ListParams, message string) error {
	return utils.SuccessWithMeta(c, items, utils.NewMeta(params.Page, params.Limit, total), message)
}
