package publisher

import (
	"context"
	"time"

	"github.com/su6nl/release-publisher/internal/logger"
)

// buildAllTargets compiles every target in order and stops at the first failure,
// so no artifact is uploaded unless all of them were rebuilt.
func (p *publisher) buildAllTargets(ctx context.Context) error {
	for i, target := range p.targets {
		logger.InfoKV(ctx, "Building target",
			"target", target, "step", i+1, "of", len(p.targets))

		started := time.Now()

		res, err := p.runner.Run(ctx, p.cfg.CargoBinary, "build", "--release", "--target", target.String())
		if err != nil {
			return &BuildError{Target: target, Result: res, Err: err}
		}

		if !res.Success() {
			return &BuildError{Target: target, Result: res}
		}

		logger.InfoKV(ctx, "Target built", "target", target, "elapsed", time.Since(started).Round(time.Millisecond))
	}

	return nil
}
