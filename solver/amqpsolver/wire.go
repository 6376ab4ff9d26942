package amqpsolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
)

type request struct {
	Domain  string `json:"domain"`
	Problem string `json:"problem"`
}

type response struct {
	Plan  []string `json:"plan,omitempty"`
	Error string   `json:"error,omitempty"`
	Kind  string   `json:"kind,omitempty"`
}

// handle answers one encoded request with solver.
func handle(ctx context.Context, solver planning.Solver, body []byte) []byte {
	var resp response
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		resp = response{Error: fmt.Sprintf("invalid request: %v", err), Kind: "translation"}
	} else if plan, err := solver.SearchPlan(ctx, req.Domain, req.Problem); err != nil {
		err = planning.Classify(err)
		resp = response{Error: err.Error(), Kind: planning.Kind(err)}
	} else {
		resp.Plan = make([]string, len(plan))
		for i, t := range plan {
			resp.Plan[i] = "(" + t.String() + ")"
		}
	}
	out, _ := json.Marshal(resp)
	return out
}

// decodeResponse turns a reply body into a plan or a planning error kind.
func decodeResponse(body []byte) ([]ontology.Task, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &planning.PlanningError{Message: "invalid reply", Err: err}
	}
	if resp.Error != "" {
		switch resp.Kind {
		case "translation":
			return nil, &planning.TranslationError{Message: resp.Error}
		case "unavailable":
			return nil, planning.Unavailable(errors.New(resp.Error))
		case "timeout":
			return nil, fmt.Errorf("%w: %s", context.DeadlineExceeded, resp.Error)
		default:
			return nil, &planning.PlanningError{Message: resp.Error}
		}
	}
	tasks := make([]ontology.Task, 0, len(resp.Plan))
	for i, step := range resp.Plan {
		task, err := ontology.ParseTask(step)
		if err != nil {
			return nil, &planning.PlanningError{Message: fmt.Sprintf("step %d", i), Err: err}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// pending routes replies to waiting calls by correlation id.
type pending struct {
	mu      sync.Mutex
	waiting map[string]chan []byte
}

func newPending() *pending {
	return &pending{waiting: make(map[string]chan []byte)}
}

func (p *pending) add(id string) <-chan []byte {
	ch := make(chan []byte, 1)
	p.mu.Lock()
	p.waiting[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pending) remove(id string) {
	p.mu.Lock()
	delete(p.waiting, id)
	p.mu.Unlock()
}

// resolve delivers body to the call waiting on id. Unknown ids are dropped.
func (p *pending) resolve(id string, body []byte) bool {
	p.mu.Lock()
	ch, ok := p.waiting[id]
	delete(p.waiting, id)
	p.mu.Unlock()
	if ok {
		ch <- body
	}
	return ok
}

// closeAll releases every waiting call with a nil body.
func (p *pending) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.waiting {
		close(ch)
		delete(p.waiting, id)
	}
}
