// Package storetest provides in-memory doubles for the graph store.
//
// Graph records upserts the way a MERGE-based store would, so import tests
// can assert on the resulting nodes and edges. ScriptedClient answers
// Cypher by substring match with canned rows, for testing query code
// without a database.
package storetest

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded statement.
type Call struct {
	Method string
	Cypher string
	Params map[string]any
}

// Rule answers statements containing Fragment.
type Rule struct {
	Fragment string
	Rows     []map[string]any
	Err      error
}

// ScriptedClient is a query.GraphClient whose answers are configured per
// Cypher fragment. The first matching rule wins; unmatched statements
// return no rows and no error.
type ScriptedClient struct {
	mu    sync.Mutex
	rules []Rule
	calls []Call
}

// NewScriptedClient creates a client with no rules.
func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{}
}

// On adds a rule returning rows for statements containing fragment.
func (c *ScriptedClient) On(fragment string, rows ...map[string]any) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, Rule{Fragment: fragment, Rows: rows})
	return c
}

// Fail adds a rule returning err for statements containing fragment.
func (c *ScriptedClient) Fail(fragment string, err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, Rule{Fragment: fragment, Err: err})
	return c
}

// Query implements query.GraphClient.
func (c *ScriptedClient) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.answer("Query", cypher, params)
}

// Execute implements query.GraphClient.
func (c *ScriptedClient) Execute(ctx context.Context, cypher string, params map[string]any) error {
	_, err := c.answer("Execute", cypher, params)
	return err
}

func (c *ScriptedClient) answer(method, cypher string, params map[string]any) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, Cypher: cypher, Params: params})
	for _, r := range c.rules {
		if strings.Contains(cypher, r.Fragment) {
			if r.Err != nil {
				return nil, r.Err
			}
			return r.Rows, nil
		}
	}
	return nil, nil
}

// Calls returns every statement received, in order.
func (c *ScriptedClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsContaining returns the statements containing fragment.
func (c *ScriptedClient) CallsContaining(fragment string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if strings.Contains(call.Cypher, fragment) {
			out = append(out, call)
		}
	}
	return out
}
