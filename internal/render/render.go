package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"ec2roles/internal/inventory"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatHosts Format = "hosts"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatHosts:
		return FormatHosts, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Renderer writes query results in one output format.
type Renderer struct {
	out     io.Writer
	format  Format
	keys    inventory.TagKeys
	contact string
}

func NewRenderer(out io.Writer, format Format, keys inventory.TagKeys, contact string) *Renderer {
	if out == nil {
		out = io.Discard
	}
	if format == "" {
		format = FormatTable
	}
	return &Renderer{out: out, format: format, keys: keys, contact: contact}
}

func (r *Renderer) Instances(instances []inventory.Instance) error {
	switch r.format {
	case FormatJSON:
		summaries := make([]map[string]any, 0, len(instances))
		for _, inst := range instances {
			summaries = append(summaries, SummarizeInstance(inst, r.keys))
		}
		return r.JSON(summaries)
	case FormatHosts:
		hosts := make([]string, 0, len(instances))
		for _, inst := range instances {
			if host := inst.ContactPoint(r.contact); host != "" {
				hosts = append(hosts, host)
			}
		}
		return r.lines(hosts)
	default:
		return r.table(instances)
	}
}

// Values writes names or ids, one per line outside of JSON output.
func (r *Renderer) Values(values []string) error {
	if r.format == FormatJSON {
		if values == nil {
			values = []string{}
		}
		return r.JSON(values)
	}
	return r.lines(values)
}

func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) lines(values []string) error {
	for _, value := range values {
		if _, err := fmt.Fprintln(r.out, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) table(instances []inventory.Instance) error {
	table := tablewriter.NewWriter(r.out)
	if err := table.Append([]string{"Num", "Name", "ID", "Type", "DNS", "Zone", "Roles", "Stages"}); err != nil {
		return err
	}
	for i, inst := range instances {
		row := []string{
			strconv.Itoa(i + 1),
			inst.DisplayName(r.keys.Name),
			inst.ID,
			inst.Type,
			inst.ContactPoint(r.contact),
			inst.AvailabilityZone,
			r.joined(inst, r.keys.Roles),
			r.joined(inst, r.keys.Stages),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func (r *Renderer) joined(inst inventory.Instance, key string) string {
	value, ok := inst.TagValue(key)
	if !ok {
		return ""
	}
	return strings.Join(inventory.Tokens(value, r.keys.Delimiter), ", ")
}

func SummarizeInstance(inst inventory.Instance, keys inventory.TagKeys) map[string]any {
	tags := make(map[string]string, len(inst.Tags))
	for _, tag := range inst.Tags {
		if _, ok := tags[tag.Key]; !ok {
			tags[tag.Key] = tag.Value
		}
	}
	roles, _ := inst.TagValue(keys.Roles)
	stages, _ := inst.TagValue(keys.Stages)
	return map[string]any{
		"id":               inst.ID,
		"name":             inst.DisplayName(keys.Name),
		"state":            inst.State,
		"type":             inst.Type,
		"availabilityZone": inst.AvailabilityZone,
		"publicDns":        inst.PublicDNS,
		"publicIp":         inst.PublicIP,
		"privateDns":       inst.PrivateDNS,
		"privateIp":        inst.PrivateIP,
		"roles":            tokens(roles, keys.Delimiter),
		"stages":           tokens(stages, keys.Delimiter),
		"tags":             tags,
	}
}

func tokens(value, delimiter string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	return inventory.Tokens(value, delimiter)
}
