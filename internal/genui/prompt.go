package genui

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the single instruction sent to the model for one page.
func BuildPrompt(utterance string, rc RequestContext, c *Catalog) string {
	var b strings.Builder
	b.WriteString("You are a friendly tutor that designs interactive learning pages for a student.\n\n")

	fmt.Fprintf(&b, "[STUDENT REQUEST]\n%s\n\n", utterance)

	b.WriteString("[STUDENT INTERESTS]\n")
	interests := nonEmpty(rc.CurrentInterests)
	if len(interests) == 0 {
		b.WriteString("(none provided)\n")
	} else {
		b.WriteString(strings.Join(interests, ", "))
		b.WriteString("\n")
	}
	if n := len(rc.RecentActivity); n > 0 {
		fmt.Fprintf(&b, "\n[RECENT ACTIVITY]\n%d recent interactions:\n", n)
		for _, a := range rc.RecentActivity {
			b.Write(a)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n[AVAILABLE COMPONENTS]\nUse only these component types:\n")
	for _, s := range c.Specs() {
		if s.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", s.Type, s.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", s.Type)
		}
	}

	b.WriteString(`
[OUTPUT FORMAT]
Respond with a single JSON object and nothing else, with exactly these keys:
- "dialogue": a short, encouraging message to the student (string)
- "components": an ordered array of {"type": <component type>, "props": {...}}
- "nextActions": an array of {"id": string, "label": string, "action": string}
`)
	if schema, err := PageSchemaJSON(c); err == nil {
		b.WriteString("\nThe object must satisfy this JSON Schema:\n")
		b.Write(schema)
		b.WriteString("\n")
	}
	return b.String()
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
