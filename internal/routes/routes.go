package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/linuxfriends/recoverysystem-golang/internal/handlers"
	"github.com/linuxfriends/recoverysystem-golang/internal/middleware"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

// CORSMiddleware tells the browser the configured frontend origin may call us.
func CORSMiddleware() gin.HandlerFunc {
	origin := os.Getenv("ALLOWED_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight requests get an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()
	router.Use(CORSMiddleware())

	adminOnly := []gin.HandlerFunc{
		middleware.AuthMiddleware(),
		middleware.RequireRoles(h.DB, models.RoleAdmin, models.RoleSuperAdmin),
	}

	api := router.Group("/api")
	{
		// --- Auth Routes ---
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/status", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"success": true, "message": "Auth service is running"})
			})
			authGroup.POST("/admin/register",
				middleware.AuthMiddleware(),
				middleware.RequireRoles(h.DB, models.RoleSuperAdmin),
				h.RegisterAdmin)
		}

		// --- Product Routes (public reads, admin mutation) ---
		products := api.Group("/products")
		{
			products.GET("", h.GetProducts)
			products.GET("/low-stock", append(adminOnly, h.GetLowStockProducts)...)
			products.GET("/:id", h.GetProduct)
			products.POST("", append(adminOnly, h.CreateProduct)...)
			products.PUT("/:id", append(adminOnly, h.UpdateProduct)...)
			products.DELETE("/:id", append(adminOnly, h.DeleteProduct)...)
			products.PUT("/:id/stock", append(adminOnly, h.UpdateStock)...)
		}

		// --- Course Routes ---
		courses := api.Group("/courses")
		{
			courses.GET("", h.GetCourses)
			courses.GET("/enrolled", middleware.AuthMiddleware(), h.GetEnrolledCourses)
			courses.GET("/:id", h.GetCourse)
			courses.POST("", append(adminOnly, h.CreateCourse)...)
			courses.PUT("/:id", append(adminOnly, h.UpdateCourse)...)
			courses.DELETE("/:id", append(adminOnly, h.DeleteCourse)...)
			courses.POST("/:id/enroll", middleware.AuthMiddleware(), h.EnrollCourse)
		}

		// --- Service Routes ---
		services := api.Group("/services")
		{
			services.GET("", h.GetServices)
			services.GET("/available-products", append(adminOnly, h.GetAvailableProducts)...)
			services.POST("", append(adminOnly, h.CreateService)...)
			services.PUT("/:id", append(adminOnly, h.UpdateService)...)
			services.DELETE("/:id", append(adminOnly, h.DeleteService)...)
			services.POST("/:id/request", middleware.OptionalAuthMiddleware(), h.RequestService)
		}

		// --- Order Routes ---
		orders := api.Group("/orders")
		{
			orders.GET("", append(adminOnly, h.GetOrders)...)
			orders.GET("/my-orders", middleware.AuthMiddleware(), h.GetMyOrders)
			orders.GET("/my-purchases", middleware.AuthMiddleware(), h.GetMyPurchases)
			orders.GET("/product/:productId", append(adminOnly, h.GetOrdersByProduct)...)
			orders.GET("/:id", append(adminOnly, h.GetOrder)...)
			orders.POST("/products", middleware.OptionalAuthMiddleware(), h.CreateProductOrder)
			orders.POST("/courses", middleware.AuthMiddleware(), h.CreateCourseOrder)
			orders.PUT("/:id/status", append(adminOnly, h.UpdateOrderStatus)...)
			orders.PUT("/:id/payment", append(adminOnly, h.UpdatePaymentStatus)...)
		}

		// --- Public Cart Flow ---
		cart := api.Group("/cart")
		cart.Use(middleware.OptionalAuthMiddleware())
		{
			cart.POST("/checkout", h.CartCheckout)
			cart.GET("/order/:orderId", h.GetCartOrderStatus)
			cart.POST("/order/:orderId/payment", h.PayCartOrder)
		}

		// --- Notification Routes (admin) ---
		notifications := api.Group("/notifications")
		{
			notifications.GET("", append(adminOnly, h.GetNotifications)...)
			notifications.PATCH("/:id/read", append(adminOnly, h.MarkNotificationAsRead)...)
		}
	}

	return router
}
