package main

import (
	"log"
	"strings"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/config"
	"github.com/kumbulanit/stockvelOS-sub001/internal/contribution"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/document"
	"github.com/kumbulanit/stockvelOS-sub001/internal/grocery"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/logger"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/notification"
	"github.com/kumbulanit/stockvelOS-sub001/internal/report"
	"github.com/kumbulanit/stockvelOS-sub001/internal/savings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Init()
	defer logger.L.Sync()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler,
		BodyLimit:    12 << 20, // document uploads
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	api := app.Group("/api/v1")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/auth/refresh", auth.RefreshHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Groups
	protected.Post("/groups", group.CreateGroupHandler())
	protected.Get("/groups", group.ListGroupsHandler())
	protected.Get("/groups/:id", group.GetGroupHandler())
	protected.Put("/groups/:id", group.UpdateGroupHandler())
	protected.Delete("/groups/:id", group.RemoveGroupHandler())

	// Membership
	protected.Post("/groups/:id/members", group.AddMemberHandler())
	protected.Get("/groups/:id/members", group.ListMembersHandler())
	protected.Put("/groups/:id/members/:memberId/role", group.ChangeMemberRoleHandler())
	protected.Delete("/groups/:id/members/:memberId", group.RemoveMemberHandler())

	// Contributions
	protected.Post("/groups/:id/contributions", contribution.CreateContributionHandler())
	protected.Get("/groups/:id/contributions", contribution.ListContributionsHandler())
	protected.Get("/groups/:id/contributions/:contribId", contribution.GetContributionHandler())
	protected.Post("/groups/:id/contributions/:contribId/approve", contribution.ApproveContributionHandler())
	protected.Post("/groups/:id/contributions/:contribId/reject", contribution.RejectContributionHandler())
	protected.Post("/groups/:id/contributions/:contribId/cancel", contribution.CancelContributionHandler())

	// Savings rules & ledger
	protected.Put("/groups/:id/savings-rule", savings.SaveRuleHandler())
	protected.Get("/groups/:id/savings-rule", savings.GetRuleHandler())
	protected.Post("/groups/:id/ledger", savings.CreateLedgerEntryHandler())
	protected.Get("/groups/:id/ledger", savings.ListLedgerHandler())

	// Grocery catalog, purchases, stock, distributions
	protected.Post("/groups/:id/grocery/products", grocery.CreateProductHandler())
	protected.Get("/groups/:id/grocery/products", grocery.ListProductsHandler())
	protected.Put("/groups/:id/grocery/products/:productId", grocery.UpdateProductHandler())
	protected.Delete("/groups/:id/grocery/products/:productId", grocery.DeleteProductHandler())
	protected.Post("/groups/:id/grocery/purchases", grocery.CreatePurchaseHandler())
	protected.Get("/groups/:id/grocery/purchases", grocery.ListPurchasesHandler())
	protected.Post("/groups/:id/grocery/purchases/:purchaseId/approve", grocery.ApprovePurchaseHandler())
	protected.Post("/groups/:id/grocery/purchases/:purchaseId/reject", grocery.RejectPurchaseHandler())
	protected.Get("/groups/:id/grocery/stock", grocery.GetStockHandler())
	protected.Post("/groups/:id/grocery/distributions", grocery.CreateDistributionHandler())
	protected.Get("/groups/:id/grocery/distributions", grocery.ListDistributionsHandler())
	protected.Get("/groups/:id/grocery/distributions/:distId", grocery.GetDistributionHandler())

	// Notifications
	protected.Get("/notifications", notification.ListNotificationsHandler())
	protected.Get("/notifications/unread-count", notification.UnreadCountHandler())
	protected.Post("/notifications/:id/read", notification.MarkReadHandler())
	protected.Post("/notifications/read-all", notification.MarkAllReadHandler())

	// Documents
	protected.Post("/groups/:id/documents", document.UploadDocumentHandler(cfg))
	protected.Get("/groups/:id/documents", document.ListDocumentsHandler())
	protected.Get("/groups/:id/documents/:docId/download", document.DownloadDocumentHandler(cfg))
	protected.Delete("/groups/:id/documents/:docId", document.DeleteDocumentHandler())

	// Reports
	protected.Get("/groups/:id/reports/contributions.xlsx", report.ContributionStatementHandler())
	protected.Get("/groups/:id/reports/summary", report.GroupSummaryHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Platform administration
	admin := protected.Group("/admin", auth.RequireRole(models.RolePlatformAdmin))
	admin.Get("/users", auth.ListUsersHandler())

	logger.L.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
