package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/infrastructure/resilience"
)

const opPublishScanRecord = "nats publish scan record"

// classifyPublishError decides how a failed scan record publish is handled.
// A record the broker refuses (too large, bad subject) fails the same way on
// every attempt and says nothing about broker health, so it neither retries nor
// counts against the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case isRejectedRecord(err):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrReconnectBufExceeded),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isRejectedRecord(err error) bool {
	return errors.Is(err, nats.ErrMaxPayload) ||
		errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, nats.ErrInvalidMsg)
}

// checkPayloadSize rejects a scan record larger than the server limit before it
// reaches the connection. A non-positive limit means it is unknown.
func checkPayloadSize(size int, limit int64) error {
	if limit > 0 && int64(size) > limit {
		return fmt.Errorf("scan record is %d bytes, server limit %d: %w", size, limit, nats.ErrMaxPayload)
	}
	return nil
}

// wrapPublishError maps a publish failure onto the domain kinds: broker outages
// become ErrTemporary, rejected records become ErrInvalidInput.
func wrapPublishError(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	if isRejectedRecord(err) {
		return domain.WrapError(domain.ErrInvalidInput, opPublishScanRecord, err)
	}
	if classifyPublishError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, opPublishScanRecord, err)
	}
	return err
}
