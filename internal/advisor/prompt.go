package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

const systemPrompt = `You map the columns of an e-commerce sales export to semantic roles.
Answer with a single JSON object and nothing else.`

func buildPrompt(labels []string, samples map[string][]string, platform marketplace.Platform) (string, error) {
	names := make([]string, len(roles.All))
	for i, r := range roles.All {
		names[i] = string(r)
	}

	cols := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		cols = append(cols, map[string]any{"label": l, "samples": samples[l]})
	}
	data, err := json.MarshalIndent(cols, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if platform != "" && platform != marketplace.Generic {
		fmt.Fprintf(&b, "The file was exported from %s.\n\n", platform)
	}
	fmt.Fprintf(&b, "Roles: %s\n\n", strings.Join(names, ", "))
	b.WriteString("Columns with sample values:\n")
	b.Write(data)
	b.WriteString(`

Return:
{"roles": {"<role>": "<exact column label>"}, "confidence": {"<role>": 0.0-1.0}, "warnings": ["..."]}

Rules:
- Use each column label at most once and copy it exactly.
- Leave out roles no column fits.
- sales_amount is the money value of the line, not a unit price or fee.`)
	return b.String(), nil
}
