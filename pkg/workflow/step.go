package workflow

import (
	"strings"

	"github.com/avi3tal/infograph/pkg/types"
)

// Step is one node of a workflow before it is placed into a stage.
type Step struct {
	ID          string
	Type        types.NodeType
	Description string
	Params      map[string]any
}

func Search(id, description string, params map[string]any) Step {
	return Step{ID: id, Type: types.NodeTypeSearch, Description: description, Params: params}
}

func Read(id, description string, params map[string]any) Step {
	return Step{ID: id, Type: types.NodeTypeRead, Description: description, Params: params}
}

func Analyze(id, description string, params map[string]any) Step {
	return Step{ID: id, Type: types.NodeTypeAnalyze, Description: description, Params: params}
}

func CrossReference(id, description string, params map[string]any) Step {
	return Step{ID: id, Type: types.NodeTypeCrossReference, Description: description, Params: params}
}

// Ref builds the reference token for a field of another step's result.
func Ref(stepID string, path ...string) string {
	return "{{" + stepID + "." + strings.Join(path, ".") + "}}"
}

func (s Step) node(group int) types.InformationNode {
	return types.InformationNode{
		ID:            s.ID,
		Type:          s.Type,
		Description:   s.Description,
		Strategy:      types.StrategySpec{Params: s.Params},
		ParallelGroup: group,
	}
}
