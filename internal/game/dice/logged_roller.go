package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
	limits Limits
}

// NewLoggedRoller creates a Roller that rolls with src under DefaultLimits and
// logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger, limits: DefaultLimits()}
}

// WithLimits returns a copy of r that parses with lim.
func (r *Roller) WithLimits(lim Limits) *Roller {
	c := *r
	c.limits = lim
	return &c
}

// Source returns the randomness provider backing r.
func (r *Roller) Source() Source { return r.src }

// Limits returns the limits r parses with.
func (r *Roller) Limits() Limits { return r.limits }

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse.
// Postcondition: result logged; returns RollResult or error.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	result, err := Roll(expr, r.src)
	if err != nil {
		r.logger.Debug("dice roll failed",
			zap.String("expression", expr.Raw),
			zap.Error(err),
		)
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice()),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a canonical dice expression string.
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := ParseWithLimits(expr, r.limits)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e)
}
