package enums

import "slices"

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonDecodeFailed OutboxDLQErrorReason = "decode_failed"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonDecodeFailed,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains(validOutboxDLQErrorReasons, r)
}

// ParseOutboxDLQErrorReason converts raw input into OutboxDLQErrorReason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse("outbox dlq reason", validOutboxDLQErrorReasons, value)
}
