package condition

import (
	"context"
	"time"

	"github.com/d5/tengo/v2"

	"go-automation/pkg/facts"
)

const (
	resultVar      = "matched__"
	scriptTimeout  = 50 * time.Millisecond
	scriptMaxAlloc = 10000
)

func newScript(expr string) *tengo.Script {
	script := tengo.NewScript([]byte(resultVar + " := (" + expr + ")"))
	script.SetMaxAllocs(scriptMaxAlloc)
	return script
}

func compileExpression(expr string) (*tengo.Compiled, error) {
	script := newScript(expr)
	if err := script.Add("facts", map[string]interface{}{}); err != nil {
		return nil, err
	}
	return script.Compile()
}

// evaluateExpression runs a custom expression with the snapshot bound as
// `facts`. Compile failures are definition errors; anything that goes wrong
// while running, or a non-boolean result, evaluates false.
func evaluateExpression(c Condition, snapshot facts.Snapshot) (bool, error) {
	script := newScript(c.Expression)
	if err := script.Add("facts", snapshot.Map()); err != nil {
		return false, nil
	}
	compiled, err := script.Compile()
	if err != nil {
		return false, compileError(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	if err := compiled.RunContext(ctx); err != nil {
		return false, nil
	}

	matched, ok := compiled.Get(resultVar).Value().(bool)
	return ok && matched, nil
}
