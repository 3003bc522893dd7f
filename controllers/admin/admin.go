package admin

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cashcage/engine"
	"cashcage/helpers"
	"cashcage/models"
)

var validate = validator.New()

type RegisterCashierRequest struct {
	Name string `json:"name" validate:"required"`
}

// RegisterCashier creates a cashier identity and hands back its credentials
// once; the secret is not retrievable later.
func RegisterCashier(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RegisterCashierRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "NAME_REQUIRED")
		}

		cashier := &models.Cashier{
			CashierCode: helpers.GenerateCashierCode(),
			Name:        req.Name,
			SecretKey:   helpers.GenerateSecretKey(),
			IsActive:    true,
		}
		if err := eng.Store().CreateCashier(cashier); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithField("cashier_code", cashier.CashierCode).Info("cashier registered")
		return helpers.JSONSuccess(c, "Cashier registered", fiber.Map{
			"cashier_code": cashier.CashierCode,
			"secret_key":   cashier.SecretKey,
			"name":         cashier.Name,
		})
	}
}

type CreatePromotionRequest struct {
	PromoCode   string          `json:"promo_code" validate:"required"`
	Name        string          `json:"name"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
	MinDeposit  decimal.Decimal `json:"min_deposit"`
	PlayerLimit int64           `json:"player_limit"`
}

func CreatePromotion(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreatePromotionRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PROMO_CODE_REQUIRED")
		}

		promo := &models.Promotion{
			PromoCode:   req.PromoCode,
			Name:        req.Name,
			BonusAmount: req.BonusAmount,
			MinDeposit:  req.MinDeposit,
			PlayerLimit: req.PlayerLimit,
		}
		if err := eng.CreatePromotion(promo); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Promotion created", promo)
	}
}

type SetLimitRequest struct {
	Limit decimal.Decimal `json:"limit"`
}

func SetCreditLimit(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SetLimitRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		adminCode, _ := c.Locals("admin").(string)

		if err := eng.SetCreditLimit(c.Params("id"), req.Limit, adminCode); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Credit limit set", fiber.Map{
			"session_id": c.Params("id"),
			"limit":      req.Limit,
		})
	}
}

func PendingCreditRequests(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requests, err := eng.PendingCreditRequests(c.Query("session_id"))
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Pending credit requests", requests)
	}
}

type DecideRequest struct {
	Approve bool `json:"approve"`
	Waiver  bool `json:"waiver"`
}

// DecideCreditRequest is the approval authority resolving a pending credit
// request. Waiver bypasses the session credit limit and nothing else.
func DecideCreditRequest(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req DecideRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		adminCode, _ := c.Locals("admin").(string)

		request, t, err := eng.DecideCreditRequest(c.Params("id"), req.Approve, adminCode, req.Waiver)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithFields(logrus.Fields{
			"request_id": c.Params("id"),
			"status":     request.Status,
			"waiver":     request.Waiver,
		}).Info("credit request decided")
		return helpers.JSONSuccess(c, "Credit request "+request.Status, fiber.Map{
			"request":     request,
			"transaction": t,
		})
	}
}
