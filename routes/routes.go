package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/controllers"
	"github.com/kendall-kelly/linen-ops-api/middleware"
	"github.com/kendall-kelly/linen-ops-api/models"
)

// SetupRouter builds the API router. auth validates the caller and stores
// the subject in the context; production passes middleware.EnsureValidToken
// and tests pass a stand-in.
func SetupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if !cfg.IsTest() {
		r.Use(config.PerformanceLogger())
	}

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleOperator)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus)

		// Profile creation runs before the employee record exists
		v1.POST("/users", auth, controllers.CreateUser)
	}

	api := v1.Group("")
	api.Use(auth, middleware.LoadUser())
	{
		users := api.Group("/users")
		{
			users.GET("/me", controllers.GetMyProfile)
			users.PUT("/me", controllers.UpdateMyProfile)
			users.GET("", admin, controllers.ListUsers)
			users.PUT("/:id/role", admin, controllers.UpdateUserRole)
		}

		products := api.Group("/products")
		{
			products.GET("", controllers.ListProducts)
			products.GET("/:id", controllers.GetProduct)
			products.POST("", admin, controllers.CreateProduct)
			products.PUT("/:id", admin, controllers.UpdateProduct)
			products.DELETE("/:id", admin, controllers.DeleteProduct)
			products.POST("/:id/image", admin, controllers.UploadProductImage)
		}

		clients := api.Group("/clients")
		{
			clients.GET("", controllers.ListClients)
			clients.GET("/:id", controllers.GetClient)
			clients.POST("", admin, controllers.CreateClient)
			clients.PUT("/:id", admin, controllers.UpdateClient)
			clients.DELETE("/:id", admin, controllers.DeleteClient)
			clients.PATCH("/:id/needs-invoice", staff, controllers.ToggleNeedsInvoice)
			clients.PUT("/:id/print-config", admin, controllers.UpdatePrintConfig)
			clients.POST("/:id/image", admin, controllers.UploadClientImage)
		}

		invoices := api.Group("/invoices")
		{
			invoices.GET("", staff, controllers.ListInvoices)
			invoices.POST("", staff, controllers.CreateInvoice)
			invoices.GET("/:id", staff, controllers.GetInvoice)
			invoices.PATCH("/:id", staff, controllers.PatchInvoice)
			invoices.DELETE("/:id", admin, controllers.DeleteInvoice)
			invoices.POST("/:id/verify", staff, controllers.VerifyInvoice)
			invoices.POST("/:id/lock", staff, controllers.LockInvoice)
			invoices.POST("/:id/unlock", admin, controllers.UnlockInvoice)
			invoices.GET("/:id/summary", staff, controllers.GetInvoiceSummary)
			invoices.GET("/:id/ticket", staff, controllers.DownloadTicket)
			invoices.POST("/:id/carts", staff, controllers.CreateCart)
		}

		carts := api.Group("/carts", staff)
		{
			carts.PATCH("/:id", controllers.UpdateCart)
			carts.DELETE("/:id", controllers.DeleteCart)
			carts.POST("/:id/items", controllers.AddCartItem)
		}

		items := api.Group("/items", staff)
		{
			items.PATCH("/:id", controllers.UpdateCartItem)
			items.DELETE("/:id", controllers.DeleteCartItem)
		}

		groups := api.Group("/pickup-groups")
		{
			groups.GET("", controllers.ListPickupGroups)
			groups.POST("", controllers.CreatePickupGroup)
			groups.GET("/:id", controllers.GetPickupGroup)
			groups.PATCH("/:id", staff, controllers.UpdatePickupGroup)
			groups.DELETE("/:id", admin, controllers.DeletePickupGroup)
			groups.POST("/:id/segregation-done", staff, controllers.MarkSegregationDone)
		}

		entries := api.Group("/pickup-entries")
		{
			entries.GET("", controllers.ListPickupEntries)
			entries.POST("", controllers.CreatePickupEntry)
			entries.DELETE("/:id", staff, controllers.DeletePickupEntry)
		}

		api.GET("/segregation-logs", staff, controllers.ListSegregationLogs)

		alerts := api.Group("/alerts")
		{
			alerts.GET("", controllers.ListAlerts)
			alerts.POST("", controllers.CreateAlert)
			alerts.POST("/:id/read", controllers.MarkAlertRead)
			alerts.POST("/:id/resolve", staff, controllers.ResolveAlert)
			alerts.DELETE("/:id", admin, controllers.DeleteAlert)
		}

		stats := api.Group("/analytics", staff)
		{
			stats.GET("/pickups/weekly", controllers.GetWeeklyPickups)
			stats.GET("/pickups/weight-intervals", controllers.GetWeightIntervals)
			stats.GET("/production", controllers.GetProduction)
			stats.GET("/forecast", controllers.GetForecast)
			stats.GET("/alerts/employees", controllers.GetEmployeeAlerts)
			stats.GET("/clients", controllers.GetClientSummaries)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", controllers.GetSettings)
			settings.GET("/classify", controllers.ClassifyProduct)
			settings.PUT("", admin, controllers.UpdateSettings)
			settings.POST("/reload", admin, controllers.ReloadSettings)
		}
	}

	return r
}
