package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Vars are the push event attributes visible to a condition expression.
type Vars struct {
	Account    string
	Region     string
	Repository string
	Tag        string
	RetryCount int
}

func (v Vars) toMap() map[string]interface{} {
	return map[string]interface{}{
		"account":    v.Account,
		"region":     v.Region,
		"repository": v.Repository,
		"tag":        v.Tag,
		"retryCount": int64(v.RetryCount),
	}
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("account", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("repository", cel.StringType),
		cel.Variable("tag", cel.StringType),
		cel.Variable("retryCount", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Condition is a compiled boolean expression. Safe for concurrent use.
type Condition struct {
	expression string
	program    cel.Program
}

func (c *Condition) String() string {
	return c.expression
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.Compile(expression)
	return err
}

func (e *Evaluator) Compile(expression string) (*Condition, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Condition{expression: expression, program: program}, nil
}

func (c *Condition) Eval(ctx context.Context, vars Vars) (bool, error) {
	result, _, err := c.program.ContextEval(ctx, vars.toMap())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
