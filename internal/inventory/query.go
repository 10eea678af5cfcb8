package inventory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"ec2roles/internal/audit"
)

const (
	OpListInstances  = "DescribeInstances"
	OpInstanceStatus = "DescribeInstanceStatus"
	OpGetInstance    = "GetInstance"
)

// caller runs one region call under the per-call deadline and records it.
type caller struct {
	timeout time.Duration
	audit   *audit.Logger
	log     logrus.FieldLogger
}

type callInfo struct {
	region     string
	op         string
	role       string
	instanceID string
}

func (c *caller) do(ctx context.Context, info callInfo, fn func(context.Context) (int, error)) error {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	count, err := fn(callCtx)
	elapsed := time.Since(start)

	event := audit.Event{
		Timestamp:  start.UTC(),
		Region:     info.region,
		Operation:  info.op,
		Role:       info.role,
		InstanceID: info.instanceID,
		Count:      count,
		DurationMs: elapsed.Milliseconds(),
		Outcome:    "success",
	}
	fields := logrus.Fields{"region": info.region, "op": info.op, "count": count, "elapsed": elapsed}
	if info.role != "" {
		fields["role"] = info.role
	}
	if info.instanceID != "" {
		fields["instance"] = info.instanceID
	}
	if err != nil {
		err = newQueryError(info.region, info.op, err)
		event.Outcome = string(KindOf(err))
		event.Error = err.Error()
		c.audit.Log(event)
		c.log.WithFields(fields).WithError(err).Warn("region query failed")
		return err
	}
	c.audit.Log(event)
	c.log.WithFields(fields).Debug("region query")
	return nil
}

func (c *caller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
