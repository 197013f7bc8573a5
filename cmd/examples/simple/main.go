package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avi3tal/infograph/internal/coordinator"
	"github.com/avi3tal/infograph/internal/registry"
	"github.com/avi3tal/infograph/pkg/strategies"
	"github.com/avi3tal/infograph/pkg/types"
	"github.com/avi3tal/infograph/pkg/workflow"
)

// arithmetic applies the "op" param to "value" and returns {"value": result}.
func arithmetic(_ context.Context, params map[string]any, _ string) (types.NodeResult, error) {
	value, ok := params["value"].(int)
	if !ok {
		return types.NodeResult{}, fmt.Errorf("value must be an int, got %T", params["value"])
	}
	switch params["op"] {
	case "double":
		value *= 2
	case "add_ten":
		value += 10
	case "divide_by_three":
		value /= 3
	default:
		return types.NodeResult{}, fmt.Errorf("unknown op %v", params["op"])
	}
	return types.NodeResult{Success: true, Data: map[string]any{"value": value}}, nil
}

func main() {
	reg := registry.New()
	if err := reg.Register(types.NodeTypeAnalyze, strategies.Func(arithmetic).Factory()); err != nil {
		log.Fatalf("Failed to register strategy: %v", err)
	}

	flow := workflow.NewBuilder("arithmetic").
		Start(workflow.Analyze("double", "double the input", map[string]any{"op": "double", "value": 5})).
		Then(workflow.Analyze("add_ten", "add ten", map[string]any{"op": "add_ten", "value": workflow.Ref("double", "value")})).
		Then(workflow.Analyze("divide_by_three", "divide by three", map[string]any{
			"op":    "divide_by_three",
			"value": workflow.Ref("add_ten", "value"),
		}))

	app, err := workflow.NewApp(flow, coordinator.New(reg))
	if err != nil {
		log.Fatalf("Failed to build workflow: %v", err)
	}

	fmt.Println("Initial value: 5")

	start := time.Now()
	results, err := app.Invoke(context.Background(), "example")
	if err != nil {
		log.Fatalf("Failed to execute workflow: %v", err)
	}

	final := results["divide_by_three"]
	if !final.Success {
		log.Fatalf("Last step failed: %s", final.Error)
	}
	fmt.Printf("Final value: %v\n", final.Data["value"])
	fmt.Printf("Execution time: %v\n", time.Since(start))

	// Expected flow:
	// 5 -> double -> 10 -> add_ten -> 20 -> divide_by_three -> 6
}
