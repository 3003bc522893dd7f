package credit

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cashcage/chips"
	"cashcage/engine"
	"cashcage/helpers"
	"cashcage/models"
)

var validate = validator.New()

type IssueRequest struct {
	PlayerCode string          `json:"player_code" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Chips      chips.Set       `json:"chip_breakdown"`
	RefID      string          `json:"ref_id"`
}

func Issue(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req IssueRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PLAYER_CODE_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		request, t, err := eng.IssueCredit(c.Params("id"), engine.IssueCreditInput{
			PlayerCode:  req.PlayerCode,
			Amount:      req.Amount,
			Chips:       req.Chips,
			RefID:       req.RefID,
			RequestedBy: cashier.CashierCode,
		})
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		message := "Credit issued"
		if t == nil {
			message = "Credit request pending approval"
		}
		logrus.WithFields(logrus.Fields{
			"session_id":  c.Params("id"),
			"player_code": req.PlayerCode,
			"amount":      req.Amount,
			"status":      request.Status,
		}).Info("credit issuance")
		return helpers.JSONSuccess(c, message, fiber.Map{
			"request":     request,
			"transaction": t,
		})
	}
}

type SettleRequest struct {
	PlayerCode string          `json:"player_code" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       string          `json:"payment_mode" validate:"required,oneof=cash online chips"`
	Chips      chips.Set       `json:"chip_breakdown"`
	RefID      string          `json:"ref_id"`
}

func Settle(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SettleRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PLAYER_CODE_AND_PAYMENT_MODE_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.SettleCredit(c.Params("id"), engine.SettleCreditInput{
			PlayerCode: req.PlayerCode,
			Amount:     req.Amount,
			Mode:       req.Mode,
			Chips:      req.Chips,
			RefID:      req.RefID,
			CreatedBy:  cashier.CashierCode,
		})
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Credit settled", t)
	}
}

func Status(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := eng.CreditStatus(c.Params("id"))
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Credit status", fiber.Map{
			"limit":    status.Limit,
			"used":     status.Used,
			"accounts": status.Accounts,
		})
	}
}
