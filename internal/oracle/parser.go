// Package oracle turns the raw decision payload from an upstream signal
// source into typed intents. The payload is a JSON array of decision
// objects; it is schema-validated before extraction so malformed input
// never reaches the execution path.
package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"vibetrader/internal/pkg/symbol"
	"vibetrader/internal/types"
)

const decisionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["symbol", "action"],
    "properties": {
      "symbol": {"type": "string", "minLength": 1},
      "action": {"type": "string", "enum": ["ENTER_LONG", "ENTER_SHORT", "HOLD", "CLOSE"]},
      "size_fraction": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
      "leverage": {"type": "integer", "minimum": 1, "maximum": 125},
      "confidence": {"type": "number", "minimum": 0, "maximum": 1},
      "decision_price": {"type": "number", "exclusiveMinimum": 0},
      "rationale": {"type": "string"},
      "exit_plan": {
        "type": "object",
        "required": ["stop_loss"],
        "properties": {
          "take_profit": {"type": "number", "exclusiveMinimum": 0},
          "stop_loss": {"type": "number", "exclusiveMinimum": 0},
          "invalidation_condition": {"type": "string"},
          "risk_budget_usd": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

// Parser validates and extracts decision payloads. Safe for concurrent
// use; the schema is compiled once.
type Parser struct {
	schema *jsonschema.Schema
}

func NewParser() (*Parser, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decisions.json", strings.NewReader(decisionSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("decisions.json")
	if err != nil {
		return nil, err
	}
	return &Parser{schema: schema}, nil
}

// Parse validates raw against the decision schema and returns the typed
// intents. Entry decisions additionally require an exit plan and a
// positive size fraction; those rules live here rather than in the
// schema so the error names the offending decision.
func (p *Parser) Parse(raw string) ([]types.Intent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("oracle: empty payload")
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("oracle: payload is not valid json")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("oracle: decode payload: %w", err)
	}
	if err := p.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("oracle: payload failed schema validation: %w", err)
	}

	var intents []types.Intent
	var parseErr error
	idx := 0
	gjson.Parse(raw).ForEach(func(_, node gjson.Result) bool {
		idx++
		intent, err := extractIntent(node)
		if err != nil {
			parseErr = fmt.Errorf("oracle: decision #%d: %w", idx, err)
			return false
		}
		intents = append(intents, intent)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(intents) == 0 {
		return nil, fmt.Errorf("oracle: decision array is empty")
	}
	return intents, nil
}

func extractIntent(node gjson.Result) (types.Intent, error) {
	intent := types.Intent{
		Symbol:        symbol.Normalize(node.Get("symbol").String()),
		Action:        types.Action(strings.ToUpper(strings.TrimSpace(node.Get("action").String()))),
		SizeFraction:  node.Get("size_fraction").Float(),
		Leverage:      int(node.Get("leverage").Int()),
		Confidence:    node.Get("confidence").Float(),
		DecisionPrice: node.Get("decision_price").Float(),
		Rationale:     strings.TrimSpace(node.Get("rationale").String()),
	}
	if !intent.Action.Valid() {
		return types.Intent{}, fmt.Errorf("unknown action %q", node.Get("action").String())
	}

	if plan := node.Get("exit_plan"); plan.Exists() {
		intent.ExitPlan = &types.ExitDirective{
			TakeProfit:    plan.Get("take_profit").Float(),
			StopLoss:      plan.Get("stop_loss").Float(),
			Invalidation:  strings.TrimSpace(plan.Get("invalidation_condition").String()),
			RiskBudgetUSD: plan.Get("risk_budget_usd").Float(),
		}
	}

	if intent.Action.IsEntry() {
		if intent.SizeFraction <= 0 {
			return types.Intent{}, fmt.Errorf("entry requires a positive size_fraction")
		}
		if intent.ExitPlan == nil {
			return types.Intent{}, fmt.Errorf("entry requires an exit_plan")
		}
	}
	return intent, nil
}
