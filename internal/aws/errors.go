package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// RetryableRead reports whether a failed read is worth one immediate retry.
// Client-fault API errors (validation failures, missing tables) never are;
// throttling, server faults and transport errors may be transient.
func RetryableRead(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		// Transport-level failure, no API verdict.
		return true
	}
	switch ae.ErrorCode() {
	case "ThrottlingException", "ProvisionedThroughputExceededException", "RequestLimitExceeded":
		return true
	}
	return ae.ErrorFault() == smithy.FaultServer
}
