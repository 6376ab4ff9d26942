// Package httpsolver calls a planner exposed over HTTP.
//
// The planner receives {"domain": ..., "problem": ...} and answers with a
// JSON body holding a "plan" array. Each step is either a task string such as
// "(greet world)" or an object {"action": "greet", "parameters": ["world"]}.
// A failed search answers with an "error" and optionally a "kind" of
// "translation" or "no_plan".
package httpsolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

// Config configures the HTTP solver client.
type Config struct {
	URL     string            `json:"url" yaml:"url"`
	Timeout time.Duration     `json:"timeout" yaml:"timeout"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

// Client is a planning.Solver backed by an HTTP planner.
type Client struct {
	config *Config
	http   *http.Client
}

// New creates a client.
func New(config *Config) (*Client, error) {
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{config: config, http: &http.Client{Timeout: config.Timeout}}, nil
}

type request struct {
	Domain  string `json:"domain"`
	Problem string `json:"problem"`
}

// SearchPlan posts the documents and decodes the plan.
func (c *Client) SearchPlan(ctx context.Context, domain, problem string) ([]ontology.Task, error) {
	body, err := json.Marshal(request{Domain: domain, Problem: problem})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, planning.Unavailable(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, planning.Unavailable(fmt.Errorf("failed to read response: %w", err))
	}
	return decodeResponse(resp.StatusCode, payload)
}

func decodeResponse(status int, payload []byte) ([]ontology.Task, error) {
	if !gjson.ValidBytes(payload) {
		if status >= 500 {
			return nil, planning.Unavailable(fmt.Errorf("planner returned %d", status))
		}
		return nil, &planning.PlanningError{Message: fmt.Sprintf("planner returned invalid JSON with status %d", status)}
	}
	result := gjson.ParseBytes(payload)
	message := result.Get("error").String()
	if message == "" {
		message = http.StatusText(status)
	}

	switch kind := result.Get("kind").String(); {
	case status >= 500:
		return nil, planning.Unavailable(fmt.Errorf("planner returned %d: %s", status, message))
	case kind == "no_plan" || status == http.StatusUnprocessableEntity:
		return nil, &planning.PlanningError{Message: message}
	case kind == "translation" || status >= 400:
		return nil, &planning.TranslationError{Message: message}
	case result.Get("error").Exists():
		return nil, &planning.PlanningError{Message: message}
	}

	plan := result.Get("plan")
	if !plan.IsArray() {
		return nil, &planning.PlanningError{Message: "response has no plan"}
	}
	tasks := make([]ontology.Task, 0, len(plan.Array()))
	for i, step := range plan.Array() {
		task, err := decodeTask(step)
		if err != nil {
			return nil, &planning.PlanningError{Message: fmt.Sprintf("step %d", i), Err: err}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func decodeTask(step gjson.Result) (ontology.Task, error) {
	switch {
	case step.Type == gjson.String:
		return ontology.ParseTask(step.String())
	case step.IsObject():
		action := step.Get("action").String()
		if action == "" {
			return ontology.Task{}, fmt.Errorf("task without action: %s", step.Raw)
		}
		var params []string
		for _, p := range step.Get("parameters").Array() {
			params = append(params, p.String())
		}
		return ontology.NewTask(action, params...), nil
	default:
		return ontology.Task{}, fmt.Errorf("unexpected task %s", step.Raw)
	}
}
