package catalog

import (
	"go.uber.org/zap"
)

func NewModule(repo Repository, coupons CouponReader, pricer Pricer, logger *zap.Logger) *Controller {
	uc := NewQuoteUseCase(repo, coupons, pricer)
	return NewController(uc, logger)
}
