package awsec2

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"ec2roles/internal/inventory"
)

const (
	codeInstanceNotFound = "InvalidInstanceID.NotFound"
	statusOK             = "ok"
)

type API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
}

// Client is the EC2-backed inventory for a single region.
type Client struct {
	api    API
	region string
}

func New(region string, api API) *Client {
	return &Client{api: api, region: region}
}

func NewFromConfig(cfg aws.Config) *Client {
	return New(cfg.Region, ec2.NewFromConfig(cfg))
}

func (c *Client) Region() string {
	return c.region
}

func (c *Client) ListInstances(ctx context.Context, filter inventory.Filter) ([]inventory.Instance, error) {
	input := &ec2.DescribeInstancesInput{Filters: Filters(filter)}
	var instances []inventory.Instance
	for {
		out, err := c.api.DescribeInstances(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, ToInstance(inst))
			}
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	return instances, nil
}

func (c *Client) InstanceStatuses(ctx context.Context, instanceID string) ([]inventory.StatusRecord, error) {
	input := &ec2.DescribeInstanceStatusInput{
		InstanceIds: []string{instanceID},
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-status.status"), Values: []string{statusOK}},
		},
	}
	var records []inventory.StatusRecord
	for {
		out, err := c.api.DescribeInstanceStatus(ctx, input)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		for _, status := range out.InstanceStatuses {
			records = append(records, toStatusRecord(status))
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	return records, nil
}

func (c *Client) InstanceByID(ctx context.Context, instanceID string) (inventory.Instance, bool, error) {
	out, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		if isNotFound(err) {
			return inventory.Instance{}, false, nil
		}
		return inventory.Instance{}, false, err
	}
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			if aws.ToString(inst.InstanceId) == instanceID {
				return ToInstance(inst), true, nil
			}
		}
	}
	return inventory.Instance{}, false, nil
}

// Filters renders the coarse inventory filter as DescribeInstances filters.
func Filters(filter inventory.Filter) []ec2types.Filter {
	var filters []ec2types.Filter
	if keys := nonEmpty(filter.AnyTagKeys); len(keys) > 0 {
		filters = append(filters, ec2types.Filter{Name: aws.String("tag-key"), Values: keys})
	}
	if key := strings.TrimSpace(filter.TagContains.Key); key != "" {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + key),
			Values: []string{"*" + filter.TagContains.Value + "*"},
		})
	}
	if states := nonEmpty(filter.States); len(states) > 0 {
		filters = append(filters, ec2types.Filter{Name: aws.String("instance-state-name"), Values: states})
	}
	return filters
}

func ToInstance(inst ec2types.Instance) inventory.Instance {
	tags := make([]inventory.Tag, 0, len(inst.Tags))
	for _, tag := range inst.Tags {
		tags = append(tags, inventory.Tag{Key: aws.ToString(tag.Key), Value: aws.ToString(tag.Value)})
	}
	out := inventory.NewInstance(aws.ToString(inst.InstanceId), tags)
	if inst.State != nil {
		out.State = string(inst.State.Name)
	}
	out.Type = string(inst.InstanceType)
	if inst.Placement != nil {
		out.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	out.PublicDNS = aws.ToString(inst.PublicDnsName)
	out.PublicIP = aws.ToString(inst.PublicIpAddress)
	out.PrivateDNS = aws.ToString(inst.PrivateDnsName)
	out.PrivateIP = aws.ToString(inst.PrivateIpAddress)
	return out
}

func toStatusRecord(status ec2types.InstanceStatus) inventory.StatusRecord {
	record := inventory.StatusRecord{InstanceID: aws.ToString(status.InstanceId)}
	if status.InstanceState != nil {
		record.State = string(status.InstanceState.Name)
	}
	if status.InstanceStatus != nil {
		record.InstanceStatus = string(status.InstanceStatus.Status)
	}
	if status.SystemStatus != nil {
		record.SystemStatus = string(status.SystemStatus.Status)
	}
	return record
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == codeInstanceNotFound
}

func nonEmpty(values []string) []string {
	var out []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
