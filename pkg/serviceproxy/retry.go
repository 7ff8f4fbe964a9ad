package serviceproxy

import (
	"context"
	"time"

	"github.com/core-tools/hsu-siat/pkg/endpoints"
	"github.com/core-tools/hsu-siat/pkg/errors"
)

type RetryOptions struct {
	RetryAttempts int
	RetryInterval time.Duration
}

// RegenerateWithRetry regenerates failed clients until none remain or the
// attempts run out, doubling the interval between attempts. It returns the
// services still failing after the last attempt.
func (p *ServiceProxy) RegenerateWithRetry(ctx context.Context, options RetryOptions) ([]endpoints.ServiceName, error) {
	if p.failedServices() == nil {
		return nil, errors.NewValidationError("service proxy is not set up", nil)
	}

	retryAttempts := options.RetryAttempts
	retryInterval := options.RetryInterval

	for retryAttempts > 0 {
		if err := p.RegenerateFailedClients(ctx); err != nil {
			return nil, err
		}

		failed := p.failedServices()
		if len(failed) == 0 {
			p.logger.Infof("All SIAT services are available")
			return nil, nil
		}

		retryAttempts--
		if retryAttempts == 0 {
			break
		}

		p.logger.Infof("%d SIAT services still failing, retrying in %s", len(failed), retryInterval)

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return failed, errors.NewCancelledError("regeneration cancelled", ctx.Err())
		}

		retryInterval = retryInterval * 2
	}

	failed := p.failedServices()
	if len(failed) > 0 {
		p.logger.Warnf("SIAT services still failing after retries: %v", failed)
	}
	return failed, nil
}
