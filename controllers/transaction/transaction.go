package transaction

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

type BuyInRequest struct {
	PlayerCode string          `json:"player_code" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       string          `json:"payment_mode" validate:"required,oneof=cash online"`
	Chips      chips.Set       `json:"chip_breakdown"`
	PromoCode  string          `json:"promo_code"`
	ApplyBonus bool            `json:"apply_bonus"`
	RefID      string          `json:"ref_id"`
}

func BuyIn(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req BuyInRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PLAYER_CODE_AND_PAYMENT_MODE_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.BuyIn(c.Params("id"), engine.BuyInInput{
			PlayerCode: req.PlayerCode,
			Amount:     req.Amount,
			Mode:       req.Mode,
			Chips:      req.Chips,
			PromoCode:  req.PromoCode,
			ApplyBonus: req.ApplyBonus,
			RefID:      req.RefID,
			CreatedBy:  cashier.CashierCode,
		})
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithFields(logrus.Fields{
			"session_id":     c.Params("id"),
			"transaction_id": t.TransactionID,
			"player_code":    req.PlayerCode,
			"amount":         req.Amount,
		}).Info("buy-in recorded")
		return helpers.JSONSuccess(c, "Buy-in recorded", t)
	}
}

type PayoutRequest struct {
	PlayerCode string          `json:"player_code" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Chips      chips.Set       `json:"chip_breakdown"`
	RefID      string          `json:"ref_id"`
}

func Payout(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req PayoutRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PLAYER_CODE_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.CashPayout(c.Params("id"), req.PlayerCode, req.Amount, req.Chips, req.RefID, cashier.CashierCode)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Payout recorded", t)
	}
}

type ChipMoveRequest struct {
	PlayerCode string    `json:"player_code"`
	Chips      chips.Set `json:"chip_breakdown"`
	Note       string    `json:"note"`
	RefID      string    `json:"ref_id"`
}

func DepositChips(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ChipMoveRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.DepositChips(c.Params("id"), req.PlayerCode, req.Chips, req.Note, req.RefID, cashier.CashierCode)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Chip deposit recorded", t)
	}
}

func ReturnChips(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ChipMoveRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.ReturnChips(c.Params("id"), req.PlayerCode, req.Chips, req.Note, req.RefID, cashier.CashierCode)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Chip return recorded", t)
	}
}

type ExpenseRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"required"`
	RefID  string          `json:"ref_id"`
}

func Expense(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ExpenseRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "NOTE_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.Expense(c.Params("id"), req.Amount, req.Note, req.RefID, cashier.CashierCode)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Expense recorded", t)
	}
}

type AdjustRequest struct {
	Deltas engine.ChipDeltas `json:"deltas"`
	Reason string            `json:"reason" validate:"required"`
}

func AdjustChips(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AdjustRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "REASON_REQUIRED")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		if err := eng.AdjustChips(c.Params("id"), req.Deltas, req.Reason, cashier.CashierCode); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Adjustment recorded", nil)
	}
}

type ReverseRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
}

func Reverse(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ReverseRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "TRANSACTION_ID_AND_REASON_REQUIRED")
		}

		t, err := eng.Reverse(c.Params("id"), req.TransactionID, req.Reason)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithFields(logrus.Fields{
			"session_id":  c.Params("id"),
			"original_id": req.TransactionID,
			"reversal_id": t.TransactionID,
		}).Info("transaction reversed")
		return helpers.JSONSuccess(c, "Transaction reversed", t)
	}
}

func List(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		txs, err := eng.Transactions(c.Params("id"))
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Transactions", txs)
	}
}
