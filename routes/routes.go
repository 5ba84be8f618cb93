package routes

import (
	"acczen/controllers/admin"
	"acczen/controllers/auth"
	"acczen/controllers/deposit"
	"acczen/controllers/loyalty"
	"acczen/controllers/order"
	"acczen/controllers/product"
	"acczen/controllers/user"
	"acczen/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(app *fiber.App) {
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Post("/auth/register", auth.Register)
	api.Post("/auth/login", auth.Login)

	api.Get("/products", product.List)
	api.Get("/products/:id", product.Get)

	authed := api.Group("", middlewares.UserAuthMiddleware)
	authed.Get("/me", user.Profile)
	authed.Get("/me/transactions", user.Transactions)
	authed.Get("/loyalty", loyalty.Info)

	authed.Post("/orders", order.Checkout)
	authed.Get("/orders", order.List)
	authed.Get("/orders/:id", order.Get)

	authed.Post("/deposits/paypal", deposit.CreatePaypal)
	authed.Post("/deposits/paypal/capture", deposit.CapturePaypal)
	authed.Post("/deposits/usdt", deposit.CreateUsdt)
	authed.Post("/deposits/usdt/verify", deposit.VerifyUsdt)
	authed.Get("/deposits", deposit.List)

	adminRoutes := api.Group("/admin", middlewares.UserAuthMiddleware, middlewares.AdminAuthMiddleware)
	adminRoutes.Get("/products", admin.ListProducts)
	adminRoutes.Post("/products", admin.CreateProduct)
	adminRoutes.Patch("/products/:id", admin.UpdateProduct)
	adminRoutes.Delete("/products/:id", admin.DeleteProduct)
	adminRoutes.Post("/products/import", admin.ImportProducts)
	adminRoutes.Post("/products/sync-stock", admin.EnqueueStockSync)
	adminRoutes.Post("/products/:id/sync-stock", admin.SyncProductStock)

	adminRoutes.Get("/orders", admin.ListOrders)
	adminRoutes.Patch("/orders/:id/status", admin.UpdateOrderStatus)

	adminRoutes.Get("/users", admin.ListUsers)
	adminRoutes.Patch("/users/:id", admin.UpdateUser)
	adminRoutes.Post("/users/:id/balance", admin.AdjustBalance)

	adminRoutes.Get("/deposits", admin.ListDeposits)
	adminRoutes.Post("/deposits/:id/review", admin.ReviewDeposit)

	adminRoutes.Get("/reports/sales", admin.SalesReport)
}
