package main

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/admin"
	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/auth"
	"github.com/sudo-init-do/tradelink/internal/marketplace"
	"github.com/sudo-init-do/tradelink/internal/messaging"
	mware "github.com/sudo-init-do/tradelink/internal/middleware"
	"github.com/sudo-init-do/tradelink/internal/pricing"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/wallet"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

type handlers struct {
	auth     *auth.Handler
	users    *user.Handler
	workers  *worker.Handler
	market   *marketplace.Handler
	chat     *messaging.Handler
	alerts   *alerts.Handler
	wallet   *wallet.Handler
	admin    *admin.Handler
	jwtGuard echo.MiddlewareFunc
}

func routes(e *echo.Echo, h handlers) {
	customer := mware.RequireRoles(user.RoleCustomer)
	tradesman := mware.RequireRoles(user.RoleWorker)

	// Public
	authGroup := e.Group("/auth")
	authGroup.Use(mware.AuthRateLimiter(2, 20))
	authGroup.POST("/signup", h.auth.Signup)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/verify-email", h.auth.VerifyEmail)
	authGroup.POST("/verify-email/resend", h.auth.ResendVerification)
	authGroup.POST("/password/request", h.auth.RequestPasswordReset)
	authGroup.POST("/password/reset", h.auth.ResetPassword)
	authGroup.POST("/admin/bootstrap", h.auth.BootstrapAdmin)

	e.GET("/users/:id/profile", h.users.GetPublicProfile)
	e.GET("/users/:id/reviews", h.market.UserReviews)
	e.GET("/pricing/suggestions/:jobType", pricing.SuggestionHandler)
	e.GET("/workers", h.workers.ListWorkers)
	e.GET("/workers/:id", h.workers.GetPublicProfile)
	e.GET("/workers/:id/projects", h.workers.WorkerProjects)
	e.GET("/projects", h.workers.Feed)

	// Protected
	api := e.Group("")
	api.Use(h.jwtGuard)

	api.GET("/auth/me", h.auth.Me)
	api.PATCH("/users/profile", h.users.UpdateProfile)

	api.POST("/jobs", h.market.CreateJob, customer)
	api.POST("/jobs/drafts", h.market.SaveDraft, customer)
	api.PUT("/jobs/:id/draft", h.market.UpdateDraft, customer)
	api.POST("/jobs/:id/publish", h.market.PublishJob, customer)
	api.GET("/jobs/mine", h.market.MyJobs)
	api.GET("/jobs/available", h.market.AvailableJobs, tradesman)
	api.GET("/jobs/:id", h.market.GetJob)
	api.POST("/jobs/:id/withdraw", h.market.WithdrawJob, customer)
	api.POST("/jobs/:id/complete", h.market.ConfirmCompletion)
	api.GET("/jobs/:id/timeline", h.market.Timeline)
	api.GET("/jobs/:id/offers", h.market.ListOffers)
	api.POST("/jobs/:id/offers", h.market.SubmitOffer, tradesman)
	api.POST("/jobs/:id/invite", h.market.InviteWorker, customer)
	api.POST("/jobs/:id/reviews", h.market.CreateReview)
	api.GET("/jobs/:id/reviews", h.market.JobReviews)
	api.POST("/offers/:id/accept", h.market.AcceptOffer)
	api.POST("/offers/:id/decline", h.market.DeclineOffer)

	w := api.Group("/worker", tradesman)
	w.PUT("/profile", h.workers.UpsertProfile)
	w.GET("/profile", h.workers.GetProfile)
	w.POST("/documents", h.workers.AddDocument)
	w.PATCH("/documents/:id", h.workers.SetDocumentCategory)
	w.DELETE("/documents/:id", h.workers.RemoveDocument)
	w.POST("/verification", h.workers.SubmitForVerification)
	w.POST("/availability", h.workers.SetAvailability)
	w.POST("/projects", h.workers.AddProject)
	w.GET("/projects", h.workers.MyProjects)
	w.DELETE("/projects/:id", h.workers.DeleteProject)
	w.GET("/earnings", h.wallet.Earnings)

	api.GET("/conversations", h.chat.ListConversations)
	api.GET("/conversations/:id", h.chat.GetConversation)
	api.GET("/conversations/:id/messages", h.chat.ListMessages)
	api.POST("/conversations/:id/messages", h.chat.SendMessage)
	api.GET("/conversations/:id/unread", h.chat.UnreadCount)
	api.POST("/conversations/:id/messages/:message_id/read", h.chat.MarkRead)
	api.GET("/conversations/:id/ws", h.chat.Connect)

	api.GET("/notifications", h.alerts.ListNotifications)
	api.POST("/notifications/:id/read", h.alerts.MarkNotificationRead)

	// Admin
	adm := e.Group("/admin", h.jwtGuard, mware.AdminGuard)
	adm.GET("/stats", h.admin.Stats)
	adm.GET("/users", h.admin.ListUsers)
	adm.POST("/users/:id/suspend", h.admin.SuspendUser)
	adm.POST("/users/:id/activate", h.admin.ActivateUser)
	adm.GET("/users/:id/transactions", h.wallet.AdminGetUserTransactions)
	adm.GET("/workers/pending", h.admin.PendingWorkers)
	adm.POST("/workers/:id/approve", h.admin.ApproveWorker)
	adm.POST("/workers/:id/reject", h.admin.RejectWorker)
}
