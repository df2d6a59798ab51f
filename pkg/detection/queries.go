package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/types"
)

// QueryPrompt extracts {object, action} pairs from an editing request
const QueryPrompt = `Identify the objects the user wants to edit in this request: %q

For each object give:
- "object": a short, generic class name that a detector can find (person, car, tree, sky)
- "action": the full imperative edit for that object only

Examples:
- "remove the person" -> [{"object": "person", "action": "remove the person"}]
- "delete the car" -> [{"object": "car", "action": "delete the car"}]
- "remove the person and blur the car" -> [{"object": "person", "action": "remove the person"}, {"object": "car", "action": "blur the car"}]

Return {"queries": []} when no specific object is mentioned.`

const querySystemInstruction = "You are an object extraction assistant for an image editor. Always respond with valid JSON."

// Planner turns a prompt into detection queries using the model service
type Planner struct {
	svc client.ModelService
}

// NewPlanner creates a query planner backed by svc
func NewPlanner(svc client.ModelService) *Planner {
	return &Planner{svc: svc}
}

type rawQueries struct {
	Queries []types.DetectionQuery `json:"queries"`
}

func querySchema() *client.Schema {
	return client.Object(map[string]*client.Schema{
		"queries": client.Array(client.Object(map[string]*client.Schema{
			"object": client.String(),
			"action": client.String(),
		}, "object", "action")),
	}, "queries")
}

// Queries returns the de-duplicated queries named by prompt, in order.
// Entries without an object are dropped.
func (p *Planner) Queries(ctx context.Context, prompt string) ([]types.DetectionQuery, error) {
	raw, err := p.svc.Generate(ctx, client.Request{
		Prompt:            fmt.Sprintf(QueryPrompt, prompt),
		SystemInstruction: querySystemInstruction,
		Schema:            querySchema(),
	})
	if err != nil {
		return nil, err
	}

	var parsed rawQueries
	if err := client.DecodeJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("query answer: %w", err)
	}
	return normalizeQueries(parsed.Queries, prompt), nil
}

func normalizeQueries(in []types.DetectionQuery, prompt string) []types.DetectionQuery {
	seen := map[types.DetectionQuery]struct{}{}
	out := make([]types.DetectionQuery, 0, len(in))
	for _, q := range in {
		q.ObjectClass = normalizeLabel(q.ObjectClass)
		q.Action = strings.Join(strings.Fields(q.Action), " ")
		if q.ObjectClass == "" {
			continue
		}
		if q.Action == "" {
			q.Action = strings.TrimSpace(prompt)
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
