package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/config"
	"github.com/mesafacil/backoffice/controllers"
	"github.com/mesafacil/backoffice/middlewares"
	"github.com/mesafacil/backoffice/services"
)

func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.SecurityHeaders())

	limiter := middlewares.NewRateLimiter(100, 60)
	r.Use(limiter.RateLimit())

	qr := services.NewQRGenerator(cfg.PaymentBaseURL)
	catalog := services.NewGormMenuCatalog(db)
	paymentService := services.NewPaymentService(db, qr)
	orderService := services.NewOrderService(db, catalog, paymentService)

	userController := controllers.NewUserController(db)
	orderController := controllers.NewOrderController(db, orderService)
	paymentController := controllers.NewPaymentController(db, paymentService)
	categoryController := controllers.NewCategoryController(db)
	menuController := controllers.NewMenuController(db)
	restaurantController := controllers.NewRestaurantController(db)

	r.Static("/uploads", "./public/uploads")

	// Customer-facing endpoints, no auth.
	public := r.Group("/api/v1")
	{
		public.GET("/restaurants/:restaurant_id/menu", restaurantController.GetPublicMenu)
		public.POST("/orders", orderController.CreateOrder)
		public.POST("/payments/generate-qr", paymentController.GenerateQR)
		public.GET("/payments/order/:order_id", paymentController.GetPaymentByOrder)
	}

	auth := r.Group("/api/v1/auth")
	{
		strict := middlewares.NewStrictRateLimiter()
		auth.POST("/register", strict, userController.Register)
		auth.POST("/login", strict, userController.Login)
		auth.POST("/logout", middlewares.AuthMiddleware(), userController.Logout)
		auth.GET("/profile", middlewares.AuthMiddleware(), userController.GetProfile)
	}

	// Back-office endpoints, staff and above.
	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware())
	{
		api.GET("/orders", orderController.GetAllOrders)
		api.GET("/orders/pending", orderController.GetPendingOrders)
		api.GET("/orders/search", orderController.SearchOrders)
		api.GET("/orders/summary", orderController.GetDailySummary)
		api.GET("/orders/:order_id", orderController.GetOrderByID)
		api.PATCH("/orders/:order_id/status", orderController.UpdateOrderStatus)

		api.GET("/payments", paymentController.GetAllPayments)
		api.POST("/payments/proof", paymentController.UploadProof)
		api.PATCH("/payments/:payment_id/verify", paymentController.VerifyPayment)

		api.GET("/categories", categoryController.GetAllCategories)
		api.GET("/menu-items", menuController.GetAllMenuItems)
		api.GET("/menu-items/:item_id", menuController.GetMenuItemByID)
		api.PATCH("/menu-items/:item_id/availability", menuController.SetAvailability)

		api.GET("/restaurant", restaurantController.GetProfile)
		api.GET("/restaurant/hours", restaurantController.GetOpeningHours)
	}

	// Manager and admin only.
	managed := r.Group("/api/v1")
	managed.Use(middlewares.AuthMiddleware(), middlewares.RequireRole("manager"))
	{
		managed.POST("/orders/:order_id/cancel", orderController.CancelOrder)
		managed.PUT("/orders/:order_id", orderController.EditOrder)
		managed.GET("/orders/stats", orderController.GetOrderStats)

		managed.PATCH("/payments/:payment_id/confirm", paymentController.ConfirmPayment)
		managed.PATCH("/payments/:payment_id/reject", paymentController.RejectPayment)
		managed.POST("/payments/:payment_id/regenerate", paymentController.RegenerateQR)
		managed.GET("/payments/stats", paymentController.GetPaymentStats)

		managed.POST("/categories", categoryController.CreateCategory)
		managed.PUT("/categories/:category_id", categoryController.UpdateCategory)
		managed.DELETE("/categories/:category_id", categoryController.DeleteCategory)

		managed.POST("/menu-items", menuController.CreateMenuItem)
		managed.PUT("/menu-items/:item_id", menuController.UpdateMenuItem)
		managed.POST("/menu-items/:item_id/image", menuController.UploadMenuItemImage)
		managed.DELETE("/menu-items/:item_id", menuController.DeleteMenuItem)

		managed.PUT("/restaurant", restaurantController.UpdateProfile)
		managed.PUT("/restaurant/hours", restaurantController.UpdateOpeningHours)
	}

	return r
}
