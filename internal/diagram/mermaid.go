package diagram

import (
	"fmt"
	"strings"

	"factotum/pkg/schema"
)

// RenderMermaid renders a workflow's step sequence as a Mermaid flowchart.
// Evaluate steps get decision shapes, foreach steps get subroutine shapes with
// their nested steps in a subgraph.
func RenderMermaid(wf *schema.Workflow) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if wf.Name != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", wf.Name))
	}

	b.WriteString("    start((\"Start\"))\n")
	prev := "start"
	for i := range wf.Steps {
		step := &wf.Steps[i]
		ordinal := i + 1
		id := safeID(step.EffectiveID(ordinal))

		b.WriteString(fmt.Sprintf("    %s\n", nodeDef(step, id, ordinal)))
		b.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))

		if step.Action == schema.ActionForeach && len(step.Steps) > 0 {
			renderLoopBody(&b, step, id, ordinal)
		}
		prev = id
	}

	b.WriteString("    done((\"Done\"))\n")
	label := ""
	if wf.OnComplete != nil && wf.OnComplete.Action != "" {
		label = fmt.Sprintf("|%s|", wf.OnComplete.Action)
	}
	b.WriteString(fmt.Sprintf("    %s -->%s done\n", prev, label))
	return b.String()
}

// renderLoopBody emits a subgraph holding the foreach step's nested chain.
func renderLoopBody(b *strings.Builder, step *schema.Step, id string, ordinal int) {
	loopVar := step.As
	if loopVar == "" {
		loopVar = "item"
	}
	b.WriteString(fmt.Sprintf("    subgraph %s_body[\"%s: per %s\"]\n",
		id, step.EffectiveID(ordinal), loopVar))

	prev := ""
	for j := range step.Steps {
		nested := &step.Steps[j]
		nestedOrdinal := j + 1
		nestedID := id + "_" + safeID(nested.EffectiveID(nestedOrdinal))
		b.WriteString(fmt.Sprintf("        %s\n", nodeDef(nested, nestedID, nestedOrdinal)))
		if prev != "" {
			b.WriteString(fmt.Sprintf("        %s --> %s\n", prev, nestedID))
		}
		prev = nestedID
	}
	b.WriteString("    end\n")
}

// nodeDef returns the node definition with a shape matching the action kind.
func nodeDef(step *schema.Step, id string, ordinal int) string {
	label := firstLine(step.DisplayName(ordinal))

	switch step.Action {
	case schema.ActionEvaluate:
		return fmt.Sprintf("%s{%q}", id, label)
	case schema.ActionForeach:
		return fmt.Sprintf("%s[[%q]]", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// safeID converts a step ID to a Mermaid-safe identifier.
func safeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
