// mercury-erp/internal/routes/api_routes.go
package routes

import (
	"mercury-erp/internal/handlers"
	"mercury-erp/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		// --- ЛЕНТА СОБЫТИЙ ---
		apiGroup.GET("/events/ws", handlers.EventsWSEndpoint)

		// --- КОНТРАГЕНТЫ ---
		partners := apiGroup.Group("/partners")
		{
			partners.GET("", handlers.ListPartnersHandler)
			partners.POST("", middleware.PermissionMiddleware("partners_manage"), handlers.CreatePartnerHandler)
			partners.GET("/:id", handlers.GetPartnerHandler)
			partners.PUT("/:id", middleware.PermissionMiddleware("partners_manage"), handlers.UpdatePartnerHandler)
			partners.DELETE("/:id", middleware.PermissionMiddleware("partners_manage"), handlers.DeletePartnerHandler)
		}
		partnerTags := apiGroup.Group("/partner-tags")
		{
			partnerTags.GET("", handlers.ListPartnerTagsHandler)
			partnerTags.POST("", middleware.PermissionMiddleware("partners_manage"), handlers.CreatePartnerTagsHandler)
			partnerTags.DELETE("/:id", middleware.PermissionMiddleware("partners_manage"), handlers.DeletePartnerTagHandler)
		}

		// --- ТОВАРЫ И УСЛУГИ ---
		products := apiGroup.Group("/products")
		{
			products.GET("", handlers.ListProductsHandler)
			products.POST("", middleware.PermissionMiddleware("products_manage"), handlers.CreateProductHandler)
			products.PUT("/:id", middleware.PermissionMiddleware("products_manage"), handlers.UpdateProductHandler)
			products.DELETE("/:id", middleware.PermissionMiddleware("products_manage"), handlers.DeleteProductHandler)
		}
		productCategories := apiGroup.Group("/product-categories")
		{
			productCategories.GET("", handlers.ListProductCategoriesHandler)
			productCategories.POST("", middleware.PermissionMiddleware("products_manage"), handlers.CreateProductCategoriesHandler)
		}

		// --- АНАЛИТИЧЕСКИЕ СЧЕТА ---
		analytic := apiGroup.Group("/analytic-accounts")
		{
			analytic.GET("", handlers.ListAnalyticAccountsHandler)
			analytic.POST("", middleware.PermissionMiddleware("analytics_manage"), handlers.CreateAnalyticAccountHandler)
			analytic.PUT("/:id", middleware.PermissionMiddleware("analytics_manage"), handlers.UpdateAnalyticAccountHandler)
			analytic.POST("/:id/confirm", middleware.PermissionMiddleware("analytics_manage"), handlers.ConfirmAnalyticAccountHandler)
			analytic.POST("/:id/archive", middleware.PermissionMiddleware("analytics_manage"), handlers.ArchiveAnalyticAccountHandler)
			analytic.DELETE("/:id", middleware.PermissionMiddleware("analytics_manage"), handlers.DeleteAnalyticAccountHandler)
		}

		// --- ПРАВИЛА АВТОАНАЛИТИКИ ---
		rules := apiGroup.Group("/auto-rules")
		{
			rules.GET("", handlers.ListAutoRulesHandler)
			rules.POST("", middleware.PermissionMiddleware("analytics_manage"), handlers.CreateAutoRuleHandler)
			rules.PUT("/:id", middleware.PermissionMiddleware("analytics_manage"), handlers.UpdateAutoRuleHandler)
			rules.POST("/:id/confirm", middleware.PermissionMiddleware("analytics_manage"), handlers.ConfirmAutoRuleHandler)
			rules.POST("/:id/archive", middleware.PermissionMiddleware("analytics_manage"), handlers.ArchiveAutoRuleHandler)
			rules.POST("/suggest", handlers.SuggestAnalyticHandler)
		}

		// --- ЗАКАЗЫ ПОСТАВЩИКАМ ---
		purchaseOrders := apiGroup.Group("/purchase-orders")
		{
			purchaseOrders.GET("", handlers.ListPurchaseOrdersHandler)
			purchaseOrders.POST("", middleware.PermissionMiddleware("orders_manage"), handlers.CreatePurchaseOrderHandler)
			purchaseOrders.GET("/:id", handlers.GetPurchaseOrderHandler)
			purchaseOrders.PUT("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.UpdatePurchaseOrderHandler)
			purchaseOrders.POST("/:id/confirm", middleware.PermissionMiddleware("orders_confirm"), handlers.ConfirmPurchaseOrderHandler)
			purchaseOrders.POST("/:id/cancel", middleware.PermissionMiddleware("orders_confirm"), handlers.CancelPurchaseOrderHandler)
			purchaseOrders.POST("/:id/create-bill", middleware.PermissionMiddleware("invoices_manage"), handlers.CreateInvoiceFromOrderHandler)
			purchaseOrders.DELETE("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.DeletePurchaseOrderHandler)
		}

		// --- ЗАКАЗЫ ПОКУПАТЕЛЕЙ ---
		salesOrders := apiGroup.Group("/sales-orders")
		{
			salesOrders.GET("", handlers.ListSalesOrdersHandler)
			salesOrders.POST("", middleware.PermissionMiddleware("orders_manage"), handlers.CreateSalesOrderHandler)
			salesOrders.GET("/:id", handlers.GetSalesOrderHandler)
			salesOrders.PUT("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.UpdateSalesOrderHandler)
			salesOrders.POST("/:id/confirm", middleware.PermissionMiddleware("orders_confirm"), handlers.ConfirmSalesOrderHandler)
			salesOrders.POST("/:id/cancel", middleware.PermissionMiddleware("orders_confirm"), handlers.CancelSalesOrderHandler)
			salesOrders.DELETE("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.DeleteSalesOrderHandler)
		}

		// --- СЧЕТА ---
		invoices := apiGroup.Group("/invoices")
		{
			invoices.GET("", handlers.ListInvoicesHandler)
			invoices.POST("", middleware.PermissionMiddleware("invoices_manage"), handlers.CreateInvoiceHandler)
			invoices.POST("/recognize", middleware.PermissionMiddleware("invoices_manage"), handlers.RecognizeBillHandler)
			invoices.GET("/archive/download", middleware.PermissionMiddleware("invoices_view_all"), handlers.DownloadInvoiceArchiveHandler)
			invoices.GET("/:id", handlers.GetInvoiceHandler)
			invoices.PUT("/:id", middleware.PermissionMiddleware("invoices_manage"), handlers.UpdateInvoiceHandler)
			invoices.POST("/:id/post", middleware.PermissionMiddleware("invoices_post"), handlers.PostInvoiceHandler)
			invoices.DELETE("/:id", middleware.PermissionMiddleware("invoices_manage"), handlers.DeleteInvoiceHandler)
		}

		// --- ПЛАТЕЖИ ---
		payments := apiGroup.Group("/payments")
		{
			payments.GET("", handlers.ListPaymentsHandler)
			payments.POST("", middleware.PermissionMiddleware("payments_manage"), handlers.CreatePaymentHandler)
			payments.GET("/:id", handlers.GetPaymentHandler)
			payments.PUT("/:id/allocations", middleware.PermissionMiddleware("payments_manage"), handlers.UpdatePaymentAllocationsHandler)
			payments.POST("/:id/post", middleware.PermissionMiddleware("payments_post"), handlers.PostPaymentHandler)
			payments.DELETE("/:id", middleware.PermissionMiddleware("payments_manage"), handlers.DeletePaymentHandler)
		}

		// --- БЮДЖЕТЫ ---
		budgets := apiGroup.Group("/budgets")
		{
			budgets.GET("", handlers.ListBudgetsHandler)
			budgets.GET("/dashboard", handlers.BudgetDashboardHandler)
			budgets.POST("", middleware.PermissionMiddleware("budgets_manage"), handlers.CreateBudgetHandler)
			budgets.GET("/:id", handlers.GetBudgetHandler)
			budgets.PUT("/:id", middleware.PermissionMiddleware("budgets_manage"), handlers.UpdateBudgetHandler)
			budgets.POST("/:id/confirm", middleware.PermissionMiddleware("budgets_confirm"), handlers.ConfirmBudgetHandler)
			budgets.POST("/:id/archive", middleware.PermissionMiddleware("budgets_confirm"), handlers.ArchiveBudgetHandler)
			budgets.POST("/:id/revise", middleware.PermissionMiddleware("budgets_confirm"), handlers.ReviseBudgetHandler)
			budgets.DELETE("/:id", middleware.PermissionMiddleware("budgets_manage"), handlers.DeleteBudgetHandler)
		}

		// --- УСЛОВИЯ ОПЛАТЫ ---
		paymentTerms := apiGroup.Group("/payment-terms")
		{
			paymentTerms.GET("", handlers.ListPaymentTermsHandler)
			paymentTerms.POST("", middleware.PermissionMiddleware("orders_manage"), handlers.CreatePaymentTermHandler)
			paymentTerms.PUT("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.UpdatePaymentTermHandler)
			paymentTerms.GET("/:id/schedule", handlers.PreviewScheduleHandler)
			paymentTerms.DELETE("/:id", middleware.PermissionMiddleware("orders_manage"), handlers.DeletePaymentTermHandler)
		}

		// --- ОТЧЕТЫ ---
		reports := apiGroup.Group("/reports")
		{
			reports.GET("/budgets/export", middleware.PermissionMiddleware("budgets_view_all"), handlers.ExportBudgetReportHandler)
			reports.GET("/journal/export", middleware.PermissionMiddleware("journal_view"), handlers.ExportJournalHandler)
		}

		// --- ПОЛЬЗОВАТЕЛИ ---
		users := apiGroup.Group("/users")
		{
			users.GET("", middleware.PermissionMiddleware("users_manage"), handlers.ListUsersHandler)
			users.POST("", middleware.PermissionMiddleware("users_manage"), handlers.CreateUserHandler)
			users.GET("/:id", middleware.PermissionMiddleware("users_manage"), handlers.GetUserHandler)
			users.PUT("/:id", middleware.PermissionMiddleware("users_manage"), handlers.UpdateUserHandler)
			users.DELETE("/:id", middleware.PermissionMiddleware("users_manage"), handlers.DeleteUserHandler)
		}

		// --- РОЛИ И ПРАВА ---
		roles := apiGroup.Group("/roles")
		{
			roles.GET("", middleware.PermissionMiddleware("users_manage"), handlers.ListRolesHandler)
			roles.POST("", middleware.PermissionMiddleware("users_manage"), handlers.CreateRoleHandler)
			roles.PUT("/:id", middleware.PermissionMiddleware("users_manage"), handlers.UpdateRoleHandler)
			roles.DELETE("/:id", middleware.PermissionMiddleware("users_manage"), handlers.DeleteRoleHandler)
		}
		apiGroup.GET("/permissions", middleware.PermissionMiddleware("users_manage"), handlers.ListPermissionsHandler)
	}
}
