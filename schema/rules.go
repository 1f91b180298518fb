package schema

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Rule is a CEL expression evaluated against a component document. The
// document is bound to the variable self and the expression must yield a
// bool; false rejects the document with Message.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

type compiledRule struct {
	Rule
	prg cel.Program
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("self", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func compileRules(env *cel.Env, rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile rule %s: %w", r.Name, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %s: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{Rule: r, prg: prg})
	}
	return compiled, nil
}

// eval runs the rule; a false result is returned as an error carrying the
// rule message.
func (r compiledRule) eval(doc map[string]any) error {
	out, _, err := r.prg.Eval(map[string]any{"self": doc})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("rule yielded %T, want bool", out.Value())
	}
	if !ok {
		return errors.New(r.Message)
	}
	return nil
}
