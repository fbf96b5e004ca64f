// Package verify submits deployed contracts to a source-verification service.
package verify

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrVerificationService = errors.New("verify: verification service error")
	ErrAlreadyVerified     = fmt.Errorf("%w: contract source code already verified", ErrVerificationService)
)

// Request identifies a deployed contract and the constructor arguments it was
// created with, in declaration order.
type Request struct {
	Address              string
	ConstructorArguments []string
}

// Service verifies a deployed contract's source.
type Service interface {
	Verify(ctx context.Context, req Request) error
}
