package genui

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
)

// MarginThreshold is the profit margin a learner has to beat on a ledger
// slider before the tutor comments on it.
const MarginThreshold = 0.5

// Rule pairs a CEL condition over componentType, action and data with the
// message to send when it holds. Respond may return "" to stay silent.
type Rule struct {
	Name      string
	Condition string
	Respond   func(ev InteractionEvent) string
}

// RuleSet evaluates rules in order and answers with the first match.
type RuleSet struct {
	rules    []Rule
	programs []cel.Program
}

func newInteractionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("componentType", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// NewRuleSet compiles every rule condition up front.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	env, err := newInteractionEnv()
	if err != nil {
		return nil, fmt.Errorf("interaction rules: create CEL environment: %w", err)
	}
	rs := &RuleSet{}
	for _, r := range rules {
		if r.Respond == nil {
			return nil, fmt.Errorf("interaction rule %q: Respond is required", r.Name)
		}
		ast, issues := env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("interaction rule %q: compile: %w", r.Name, issues.Err())
		}
		prg, err := env.Program(ast, cel.CostLimit(100000))
		if err != nil {
			return nil, fmt.Errorf("interaction rule %q: program: %w", r.Name, err)
		}
		rs.rules = append(rs.rules, r)
		rs.programs = append(rs.programs, prg)
	}
	return rs, nil
}

// DefaultRuleSet holds the built-in rules: the ledger margin discovery and a
// correct multiple-choice answer.
func DefaultRuleSet() (*RuleSet, error) {
	return NewRuleSet(LedgerMarginRule(), CorrectAnswerRule())
}

// LedgerMarginRule fires when a ledger price slider yields a margin strictly
// above MarginThreshold.
func LedgerMarginRule() Rule {
	return Rule{
		Name: "ledger_margin",
		Condition: fmt.Sprintf(`componentType == "dynamicLedger" && action == "slider_change" &&
has(data.newPrice) && has(data.newProfit) &&
type(data.newPrice) == double && type(data.newProfit) == double &&
data.newPrice > 0.0 && data.newProfit / data.newPrice > %g`, MarginThreshold),
		Respond: func(ev InteractionEvent) string {
			price, _ := numberField(ev.Data, "newPrice")
			profit, _ := numberField(ev.Data, "newProfit")
			margin := profit / price * 100
			return fmt.Sprintf("Great discovery! At a price of %s you keep %.0f%% of every sale as profit. More than half of the price is yours to keep. What do you think would happen to sales if the price went even higher?",
				formatAmount(price), margin)
		},
	}
}

// CorrectAnswerRule praises a correct multiple-choice answer.
func CorrectAnswerRule() Rule {
	return Rule{
		Name: "correct_answer",
		Condition: `componentType == "multipleChoice" && action == "answer_selected" &&
has(data.correct) && type(data.correct) == bool && data.correct`,
		Respond: func(InteractionEvent) string {
			return "That's right! Can you explain to yourself why that answer works?"
		},
	}
}

// Match evaluates the rules against ev. Malformed or missing data never
// produces an error; it simply does not match.
func (rs *RuleSet) Match(ev InteractionEvent) (*Acknowledgement, string) {
	if rs == nil {
		return nil, ""
	}
	vars := map[string]any{
		"componentType": ev.ComponentType,
		"action":        ev.Action,
		"data":          normalizeData(ev.Data),
	}
	for i, prg := range rs.programs {
		out, _, err := prg.Eval(vars)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); !ok || !matched {
			continue
		}
		msg := safeRespond(rs.rules[i], ev)
		if msg == "" {
			continue
		}
		return &Acknowledgement{
			ResponseType: ResponseTypeAcknowledgement,
			Content:      AckContent{Dialogue: msg},
		}, rs.rules[i].Name
	}
	return nil, ""
}

func safeRespond(r Rule, ev InteractionEvent) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()
	return r.Respond(ev)
}

// normalizeData converts Go numeric values to float64 so that conditions see
// the same types as for decoded JSON.
func normalizeData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if f, ok := toFloat(v); ok {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}

func numberField(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
