package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/types"
)

const systemInstruction = `You are an assistant answering a user's request from information gathered on their behalf.
Rules:
- Use only facts present in the findings. Never invent messages, people, dates or numbers.
- If the findings are empty or insufficient to answer, say so plainly and suggest what the user could ask instead.
- Do not mention internal node identifiers, tools or resource counters.`

var toneInstructions = map[string]string{
	types.ToneProfessional: "Use a professional, courteous tone.",
	types.ToneCasual:       "Use a friendly, casual tone.",
	types.ToneConcise:      "Be direct and terse.",
}

var verbosityInstructions = map[string]string{
	types.VerbosityBrief:    "Keep the answer short.",
	types.VerbosityDetailed: "Give a thorough answer that covers every relevant finding.",
}

var formatInstructions = map[string]string{
	types.FormatBullets: "Format the answer as a bulleted list.",
	types.FormatProse:   "Write the answer as flowing prose.",
}

func systemPrompt(prefs types.UserPreferences) string {
	prefs = prefs.WithDefaults()

	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nStyle:\n")
	for _, line := range []string{
		instruction(toneInstructions, prefs.Tone),
		instruction(verbosityInstructions, prefs.Verbosity),
		instruction(formatInstructions, prefs.Format),
	} {
		if line != "" {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func instruction(table map[string]string, key string) string {
	return table[strings.ToLower(key)]
}

func userPrompt(query string, g *types.ExecutionGraph, findings types.StructuredFindings) (string, error) {
	payload, err := json.MarshalIndent(findings.InformationGathered, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode findings")
	}

	nodes := 0
	if g != nil {
		nodes = len(g.InformationNeeds)
	}
	domains := "none"
	if len(findings.Domains) > 0 {
		domains = strings.Join(findings.Domains, ", ")
	}
	queryType := findings.QueryType
	if queryType == "" {
		queryType = "general"
	}

	usage := findings.ResourceUsage

	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s\n\n", query)
	fmt.Fprintf(&b, "Investigated %d sources across %s for a %s query.\n\n", nodes, domains, queryType)
	fmt.Fprintf(&b, "Findings:\n%s\n\n", payload)
	fmt.Fprintf(&b, "Resource usage: %d tokens, %d LLM calls, %.1fs, %d succeeded, %d failed.",
		usage.TotalTokens, usage.TotalLLMCalls, usage.TotalTimeSeconds, usage.NodesSucceeded, usage.NodesFailed)
	return b.String(), nil
}
