package promotion

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"cashcage/engine"
	"cashcage/helpers"
)

var validate = validator.New()

func List(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		promos, err := eng.ActivePromotions()
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Active promotions", promos)
	}
}

type CheckRequest struct {
	PromoCode     string          `json:"promo_code" validate:"required"`
	PlayerCode    string          `json:"player_code"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// Check previews eligibility without claiming anything; the claim itself only
// happens when a buy-in carries apply_bonus.
func Check(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CheckRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if err := validate.Struct(req); err != nil {
			return helpers.JSONError(c, "PROMO_CODE_REQUIRED")
		}

		elig, err := eng.CheckEligibility(req.PromoCode, req.PlayerCode, req.DepositAmount)
		if err != nil {
			return helpers.JSONEngineError(c, err)
		}
		return helpers.JSONSuccess(c, "Eligibility", elig)
	}
}
