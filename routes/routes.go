package routes

import (
	"cashcage/controllers/admin"
	"cashcage/controllers/credit"
	"cashcage/controllers/promotion"
	"cashcage/controllers/session"
	"cashcage/controllers/transaction"
	"cashcage/engine"
	"cashcage/middlewares"

	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, eng *engine.Engine) {
	// cashier surface
	sessions := app.Group("/sessions", middlewares.CashierAuth)
	sessions.Post("/", session.Open(eng))
	sessions.Post("/:id/opening-chips", session.SetOpeningChips(eng))
	sessions.Post("/:id/float", session.AddFloat(eng))
	sessions.Post("/:id/close", session.Close(eng))
	sessions.Get("/:id/summary", session.Summary(eng))
	sessions.Get("/:id/transactions", transaction.List(eng))

	sessions.Post("/:id/buy-in", transaction.BuyIn(eng))
	sessions.Post("/:id/payout", transaction.Payout(eng))
	sessions.Post("/:id/deposit-chips", transaction.DepositChips(eng))
	sessions.Post("/:id/return-chips", transaction.ReturnChips(eng))
	sessions.Post("/:id/expense", transaction.Expense(eng))
	sessions.Post("/:id/adjust-chips", transaction.AdjustChips(eng))
	sessions.Post("/:id/reverse", transaction.Reverse(eng))

	sessions.Post("/:id/credits", credit.Issue(eng))
	sessions.Post("/:id/credits/settle", credit.Settle(eng))
	sessions.Get("/:id/credits", credit.Status(eng))

	promos := app.Group("/promotions", middlewares.CashierAuth)
	promos.Get("/", promotion.List(eng))
	promos.Post("/check", promotion.Check(eng))

	// admin surface
	adminroutes := app.Group("/admin", middlewares.AdminAuth())
	adminroutes.Post("/cashiers", admin.RegisterCashier(eng))
	adminroutes.Post("/promotions", admin.CreatePromotion(eng))
	adminroutes.Get("/credit-requests", admin.PendingCreditRequests(eng))
	adminroutes.Post("/credit-requests/:id", admin.DecideCreditRequest(eng))
	adminroutes.Post("/sessions/:id/limit", admin.SetCreditLimit(eng))
	adminroutes.Post("/sessions/:id/audit-note", session.AppendAuditNote(eng))
}
