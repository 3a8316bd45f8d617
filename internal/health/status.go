package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EndpointGroup is the status of one monitored endpoint.
type EndpointGroup struct {
	Name    string           `json:"name"`
	Group   string           `json:"group,omitempty"`
	Key     string           `json:"key,omitempty"`
	Results []EndpointResult `json:"results"`
}

// EndpointResult is one evaluation of an endpoint.
type EndpointResult struct {
	Name             string            `json:"name,omitempty"`
	Hostname         string            `json:"hostname,omitempty"`
	Status           int               `json:"status,omitempty"`
	Success          bool              `json:"success"`
	Duration         time.Duration     `json:"duration,omitempty"`
	Timestamp        time.Time         `json:"timestamp,omitempty"`
	Errors           []string          `json:"errors,omitempty"`
	ConditionResults []ConditionResult `json:"conditionResults,omitempty"`
}

// ConditionResult is the outcome of one configured condition.
type ConditionResult struct {
	Condition string `json:"condition"`
	Success   bool   `json:"success"`
}

// Healthy reports whether the most recent result succeeded. Groups with no
// results are not healthy.
func (g EndpointGroup) Healthy() bool {
	if len(g.Results) == 0 {
		return false
	}
	return g.Results[len(g.Results)-1].Success
}

// GetStatus fetches the endpoint statuses once. Failures are returned, not
// retried.
func (c *Client) GetStatus(ctx context.Context, timeout time.Duration) ([]EndpointGroup, error) {
	var groups []EndpointGroup
	err := c.do(ctx, statusesPath, timeout, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			body, err := readBounded(resp.Body)
			if err != nil {
				return err
			}
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
		}
		// Result histories routinely exceed maxBodyBytes.
		if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
			return fmt.Errorf("failed to decode endpoint statuses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Summary counts healthy and unhealthy endpoint groups.
type Summary struct {
	Total     int
	Healthy   int
	Unhealthy []string
}

// Summarize reduces groups to counts.
func Summarize(groups []EndpointGroup) Summary {
	s := Summary{Total: len(groups)}
	for _, g := range groups {
		if g.Healthy() {
			s.Healthy++
			continue
		}
		s.Unhealthy = append(s.Unhealthy, g.Name)
	}
	return s
}
