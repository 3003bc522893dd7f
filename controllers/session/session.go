package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cashcage/chips"
	"cashcage/engine"
	"cashcage/helpers"
	"cashcage/models"
	"cashcage/services"
)

var validate = validator.New()

type OpenRequest struct {
	Date         string          `json:"date"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

func Open(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OpenRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		cashier, ok := c.Locals("cashier").(models.Cashier)
		if !ok {
			return helpers.JSONError(c, "INVALID_CASHIER_SESSION")
		}
		if req.Date == "" {
			req.Date = time.Now().Format("2006-01-02")
		}

		s, err := eng.OpenSession(cashier.CashierCode, req.Date, req.OpeningFloat)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithFields(logrus.Fields{
			"session_id":    s.SessionID,
			"cashier_code":  cashier.CashierCode,
			"opening_float": s.OpeningFloat,
		}).Info("session opened")
		return helpers.JSONSuccess(c, "Session opened", s)
	}
}

type OpeningChipsRequest struct {
	Chips chips.Set `json:"chips"`
}

func SetOpeningChips(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OpeningChipsRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		sessionID := c.Params("id")
		if err := eng.SetOpeningChips(sessionID, req.Chips); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Opening inventory recorded", fiber.Map{
			"session_id": sessionID,
			"chips":      req.Chips,
			"value":      req.Chips.Value(),
		})
	}
}

type AddFloatRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Chips  chips.Set       `json:"chip_breakdown"`
	Notes  string          `json:"notes"`
	RefID  string          `json:"ref_id"`
}

func AddFloat(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AddFloatRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		cashier, _ := c.Locals("cashier").(models.Cashier)

		t, err := eng.AddFloat(c.Params("id"), req.Amount, req.Chips, req.Notes, req.RefID, cashier.CashierCode)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Float added", t)
	}
}

type CloseRequest struct {
	ActualCash   decimal.Decimal `json:"actual_cash"`
	ActualOnline decimal.Decimal `json:"actual_online"`
	Note         string          `json:"note"`
}

func Close(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CloseRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		s, tally, err := eng.CloseSession(c.Params("id"), req.ActualCash, req.ActualOnline, req.Note)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		logrus.WithFields(logrus.Fields{
			"session_id": s.SessionID,
			"difference": tally.Difference,
		}).Info("session closed")
		return helpers.JSONSuccess(c, "Session closed", fiber.Map{
			"session": s,
			"tally":   tally,
		})
	}
}

func Summary(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := services.BuildSummary(eng, c.Params("id"))
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Session summary", summary)
	}
}

type AuditNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

func AppendAuditNote(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AuditNoteRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "NOTE_REQUIRED")
		}
		if err := eng.AppendAuditNote(c.Params("id"), req.Note); err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Audit note recorded", nil)
	}
}
