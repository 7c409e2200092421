// Package router builds the HTTP app and its route table.
package router

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"ptmanager_backend/internal/controller"
	"ptmanager_backend/internal/middleware"
	"ptmanager_backend/pkg/errtrack"
	"ptmanager_backend/pkg/subscription"
	"ptmanager_backend/pkg/utils/jwt"
)

// MaxBodySize leaves room for video uploads on landing pages.
const MaxBodySize = 512 * 1024 * 1024

type Options struct {
	// MediaDir is served under /media when media is kept on local disk.
	MediaDir string
	// Quiet disables request logging.
	Quiet bool
}

func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    MaxBodySize,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if !opts.Quiet {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	if opts.MediaDir != "" {
		app.Static("/media", opts.MediaDir)
	}

	Setup(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		errtrack.CaptureError(err, map[string]string{"route": c.Path()})
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func Setup(app *fiber.App) {
	api := app.Group("/api")

	auth := middleware.AuthMiddleware()
	admin := middleware.RequireRole(jwt.RoleAdmin)
	staff := middleware.RequireRole(jwt.RoleAdmin, jwt.RoleCollaborator)
	clientOnly := middleware.RequireRole(jwt.RoleClient)
	clientAccess := middleware.CheckClientAccess()

	// Auth
	api.Post("/auth/register", controller.Register)
	api.Post("/auth/login", controller.Login)
	api.Get("/me", auth, controller.GetMe)
	api.Put("/me/password", auth, controller.ChangePassword)

	// Team
	api.Get("/team", auth, admin, controller.ListTeam)
	api.Post("/team/invite", auth, admin, middleware.CheckCollaboratorLimit, controller.InviteUser)
	api.Delete("/team/:id", auth, admin, controller.RemoveTeamMember)

	// Settings
	api.Get("/settings/profile", auth, controller.GetProfile)
	api.Put("/settings/profile", auth, controller.UpdateProfile)
	api.Put("/settings/notifications", auth, controller.UpdateNotificationPrefs)
	api.Post("/settings/avatar", auth, controller.UploadAvatar)
	api.Get("/settings/login-history", auth, controller.GetLoginHistory)

	// Clients
	api.Get("/clients", auth, staff, controller.ListClients)
	api.Post("/clients", auth, staff, middleware.CheckClientLimit, controller.CreateClient)
	api.Get("/clients/:id", auth, clientAccess, controller.GetClient)
	api.Put("/clients/:id", auth, staff, clientAccess, controller.UpdateClient)
	api.Delete("/clients/:id", auth, admin, clientAccess, controller.DeleteClient)
	api.Post("/clients/:id/archive", auth, admin, clientAccess, controller.ArchiveClient)
	api.Post("/clients/:id/unarchive", auth, admin, clientAccess, controller.UnarchiveClient)

	api.Get("/clients/:id/payments", auth, staff, clientAccess, controller.ListPayments)
	api.Post("/clients/:id/payments", auth, admin, clientAccess, controller.CreatePayment)
	api.Delete("/clients/:id/payments/:paymentId", auth, admin, clientAccess, controller.DeletePayment)
	api.Get("/clients/:id/rates", auth, staff, clientAccess, controller.ListRates)
	api.Post("/clients/:id/rates", auth, admin, clientAccess, controller.CreateRate)
	api.Put("/clients/:id/rates/:rateId/paid", auth, admin, clientAccess, controller.MarkRatePaid)

	// Client portal
	portal := middleware.CheckFeatureAccess(subscription.ClientPortal)
	api.Get("/clients/:id/checks", auth, clientAccess, controller.ListChecks)
	api.Post("/clients/:id/checks", auth, portal, clientAccess, controller.CreateCheck)
	api.Delete("/clients/:id/checks/:checkId", auth, staff, clientAccess, controller.DeleteCheck)
	api.Get("/clients/:id/anamnesi", auth, clientAccess, controller.ListAnamnesi)
	api.Post("/clients/:id/anamnesi", auth, portal, clientAccess, controller.SubmitAnamnesi)
	api.Get("/clients/:id/habits", auth, portal, clientAccess, controller.GetHabits)
	api.Post("/clients/:id/habits/log", auth, portal, clientAccess, controller.LogHabit)
	api.Put("/clients/:id/habits/targets", auth, staff, clientAccess, controller.UpdateHabitTargets)

	// Leads
	api.Post("/leads", auth, staff, controller.CreateLead)
	api.Get("/leads", auth, admin, controller.ListLeads)
	api.Get("/leads/mine", auth, staff, controller.ListMyLeads)
	api.Get("/leads/stats/sources", auth, admin, controller.GetLeadSourceStats)
	api.Get("/leads/export", auth, admin, middleware.CheckFeatureAccess(subscription.LeadExport), controller.ExportLeads)
	api.Post("/leads/sync-calendar", auth, admin, controller.SyncLeadsToCalendar)
	api.Put("/leads/:id", auth, staff, controller.UpdateLead)
	api.Delete("/leads/:id", auth, admin, controller.DeleteLead)

	api.Get("/reports/daily", auth, staff, controller.ListDailyReports)
	api.Put("/reports/daily", auth, staff, controller.UpsertDailyReport)

	// Calendar
	api.Get("/calendar/events", auth, staff, controller.ListEvents)
	api.Post("/calendar/events", auth, staff, controller.CreateEvent)
	api.Put("/calendar/events/:id", auth, staff, controller.UpdateEvent)
	api.Delete("/calendar/events/:id", auth, staff, controller.DeleteEvent)

	// Employees and commissions
	api.Get("/employees", auth, admin, controller.ListEmployees)
	api.Post("/employees", auth, admin, controller.CreateEmployee)
	api.Put("/employees/:id", auth, admin, controller.UpdateEmployee)
	api.Delete("/employees/:id", auth, admin, controller.ArchiveEmployee)
	api.Get("/employee-payments", auth, admin, controller.ListEmployeePayments)
	api.Post("/employee-payments", auth, admin, controller.CreateEmployeePayment)
	api.Delete("/employee-payments/:id", auth, admin, controller.DeleteEmployeePayment)
	api.Get("/commissions/summary", auth, admin, controller.GetCommissionSummary)
	api.Get("/commissions/payroll.pdf", auth, admin, middleware.CheckFeatureAccess(subscription.PayrollReports),
		controller.GetPayrollPDF)

	// Landing pages
	landing := middleware.CheckFeatureAccess(subscription.LandingPages)
	api.Get("/landing-pages", auth, admin, landing, controller.ListLandingPages)
	api.Post("/landing-pages", auth, admin, landing, middleware.CheckLandingPageLimit, controller.CreateLandingPage)
	api.Get("/landing-pages/:id", auth, admin, landing, controller.GetLandingPage)
	api.Put("/landing-pages/:id", auth, admin, landing, controller.UpdateLandingPage)
	api.Delete("/landing-pages/:id", auth, admin, landing, controller.DeleteLandingPage)
	api.Post("/landing-pages/:id/duplicate", auth, admin, landing, middleware.CheckLandingPageLimit,
		controller.DuplicateLandingPage)
	api.Post("/landing-pages/:id/media", auth, admin, middleware.CheckFeatureAccess(subscription.MediaUploads),
		controller.UploadLandingMedia)
	api.Delete("/landing-media", auth, admin, controller.DeleteLandingMedia)

	// Public landing pages
	api.Get("/public/pages/:tenant/:slug", controller.GetPublicLandingPage)
	api.Post("/public/pages/:tenant/:slug/view", controller.RecordLandingView)
	api.Post("/public/pages/:tenant/:slug/lead", controller.SubmitLandingLead)

	// Dashboard
	api.Get("/dashboard/stats", auth, admin, controller.GetDashboardStats)
	api.Get("/dashboard/feed", auth, admin, controller.GetActivityFeed)

	// Notifications
	api.Get("/notifications", auth, controller.ListNotifications)
	api.Get("/notifications/unread-count", auth, controller.UnreadCount)
	api.Get("/notifications/stream", auth, controller.StreamNotifications)
	api.Get("/notifications/history", auth, admin, controller.NotificationHistory)
	api.Post("/notifications/send", auth, admin, controller.SendClientNotification)
	api.Post("/notifications/call-request", auth, clientOnly, controller.RequestCall)
	api.Put("/notifications/read-all", auth, controller.MarkAllNotificationsRead)
	api.Put("/notifications/:id/read", auth, controller.MarkNotificationRead)
	api.Post("/devices", auth, controller.RegisterDeviceToken)
	api.Delete("/devices/:token", auth, controller.DeleteDeviceToken)

	// Subscriptions
	api.Get("/subscriptions/plans", controller.ListPlans)
	api.Get("/subscriptions/my", auth, controller.GetMySubscription)
	api.Post("/subscriptions/checkout", auth, admin, controller.Subscribe)
	api.Post("/subscriptions/cancel", auth, admin, controller.CancelSubscription)
	api.Post("/webhook/stripe", controller.HandleStripeWebhook)
}
