package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindQuery         Kind = "query"
	KindTimeout       Kind = "timeout"
)

var ErrNoRegions = errors.New("no region clients configured")

// QueryError ties a failed provider call to the region that produced it.
type QueryError struct {
	Region string
	Op     string
	Kind   Kind
	Code   string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("%s in %s timed out: %v", e.Op, e.Region, e.Err)
	}
	return fmt.Sprintf("%s in %s failed: %v", e.Op, e.Region, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func newQueryError(region, op string, err error) error {
	var existing *QueryError
	if errors.As(err, &existing) {
		return err
	}
	qerr := &QueryError{Region: region, Op: op, Kind: KindQuery, Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		qerr.Kind = KindTimeout
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		qerr.Code = apiErr.ErrorCode()
	}
	return qerr
}

func IsTimeout(err error) bool {
	var qerr *QueryError
	return errors.As(err, &qerr) && qerr.Kind == KindTimeout
}

func IsQueryFailure(err error) bool {
	var qerr *QueryError
	return errors.As(err, &qerr)
}

func RegionOf(err error) (string, bool) {
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		return "", false
	}
	return qerr.Region, true
}

// KindOf classifies err for callers that map failures to exit codes or messages.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return qerr.Kind
	}
	var cfgErr interface{ IsConfiguration() bool }
	if errors.Is(err, ErrNoRegions) || (errors.As(err, &cfgErr) && cfgErr.IsConfiguration()) {
		return KindConfiguration
	}
	return KindQuery
}
