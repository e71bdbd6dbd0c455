/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/samber/lo"
	"k8s.io/utils/set"
)

const (
	AccessDeniedCode          = "AccessDenied"
	AccessDeniedExceptionCode = "AccessDeniedException"
)

var (
	// This is not an exhaustive list, add to it as needed
	notFoundErrorCodes = set.New(
		"NoSuchKey",
		"NotFound",
		"ServiceNotFoundException",
		"ClusterNotFoundException",
		"ResourceNotFound",
	)
	accessDeniedErrorCodes = set.New(
		AccessDeniedCode,
		AccessDeniedExceptionCode,
		"UnauthorizedOperation",
	)
	throttlingErrorCodes = set.New(
		"Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
		"SlowDown",
	)
)

// IsNotFound returns true if the err is an AWS error (even if it's
// wrapped) and is a known to mean "not found" (as opposed to a more
// serious or unexpected error)
func IsNotFound(err error) bool {
	return hasCode(err, notFoundErrorCodes)
}

// IsAccessDenied returns true if the error is an AWS error (even if it's
// wrapped) and is known to mean "access denied" (as opposed to a more
// serious or unexpected error)
func IsAccessDenied(err error) bool {
	return hasCode(err, accessDeniedErrorCodes)
}

// IsThrottling returns true if the error is an AWS error (even if it's
// wrapped) and signals that the caller exceeded an API rate limit
func IsThrottling(err error) bool {
	return hasCode(err, throttlingErrorCodes)
}

func hasCode(err error, codes set.Set[string]) bool {
	if err == nil {
		return false
	}
	apiErr, ok := lo.ErrorsAs[smithy.APIError](err)
	if !ok {
		return false
	}
	return codes.Has(apiErr.ErrorCode())
}

// ConfigurationError means the invocation input or the deployment settings are missing or malformed. A cycle
// that hits one stops before any external call is made.
type ConfigurationError struct {
	error
}

func NewConfigurationError(err error) error {
	return ConfigurationError{error: err}
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration, %s", e.error)
}

func (e ConfigurationError) Unwrap() error {
	return e.error
}

func IsConfigurationError(err error) bool {
	_, ok := lo.ErrorsAs[ConfigurationError](err)
	return ok
}

// InsufficientDataError is returned when the metric window holds fewer samples than the selector needs to
// skip the in-progress bucket.
type InsufficientDataError struct {
	Samples  int
	Required int
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient metric data, got %d samples, need at least %d", e.Samples, e.Required)
}

func IsInsufficientData(err error) bool {
	_, ok := lo.ErrorsAs[InsufficientDataError](err)
	return ok
}

// DependencyError wraps a failure of one of the external collaborators: the metric source, the orchestrator
// or the cooldown record store. These are never retried within a cycle.
type DependencyError struct {
	Dependency string
	error
}

func NewDependencyError(dependency string, err error) error {
	return DependencyError{Dependency: dependency, error: err}
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("%s, %s", e.Dependency, e.error)
}

func (e DependencyError) Unwrap() error {
	return e.error
}

func IsDependencyError(err error) bool {
	_, ok := lo.ErrorsAs[DependencyError](err)
	return ok
}

// Reason returns a short, label friendly description of the error class.
func Reason(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsConfigurationError(err):
		return "configuration_error"
	case IsInsufficientData(err):
		return "insufficient_data"
	case IsDependencyError(err):
		return "dependency_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
