package schemaloop

import (
	"fmt"
	"strings"

	"github.com/schemaloop/schemaloop/llm"
	"github.com/schemaloop/schemaloop/schema"
	"github.com/schemaloop/schemaloop/types"
)

// reask produces the next conversation after a failed attempt. The
// feedback arrives in the same modality the model answered in: tool
// results for tool-call modes, a plain user turn otherwise. The prior
// conversation is never edited, only appended to.
func reask(conv []types.Message, resp *llm.Response, errs *schema.ValidationErrors, mode types.Mode, schemaName string) []types.Message {
	switch mode.Family() {
	case types.FamilyTool:
		return reaskToolCalls(conv, resp, errs, schemaName)
	default:
		return reaskText(conv, resp, errs, schemaName)
	}
}

func reaskToolCalls(conv []types.Message, resp *llm.Response, errs *schema.ValidationErrors, schemaName string) []types.Message {
	assistant := types.NewAssistantMessage(responseContent(resp))
	if resp != nil && len(resp.ToolCalls) > 0 {
		assistant = assistant.WithToolCalls(resp.ToolCalls)
	}
	next := types.AppendMessages(conv, assistant)

	body := correctionBody(errs, schemaName)
	if resp != nil && len(resp.ToolCalls) > 0 {
		// Answer each call so providers that require a result per
		// call accept the follow-up turn.
		for _, call := range resp.ToolCalls {
			next = types.AppendMessages(next, types.NewToolMessage(call.ID, call.Name, body))
		}
		return next
	}
	return types.AppendMessages(next, types.NewUserMessage(body))
}

func reaskText(conv []types.Message, resp *llm.Response, errs *schema.ValidationErrors, schemaName string) []types.Message {
	next := types.AppendMessages(conv, types.NewAssistantMessage(responseContent(resp)))
	return types.AppendMessages(next, types.NewUserMessage(correctionBody(errs, schemaName)))
}

// correctionBody renders the error list, one "path: message" per
// line, followed by the resubmission instruction.
func correctionBody(errs *schema.ValidationErrors, schemaName string) string {
	var b strings.Builder
	b.WriteString("The response failed validation:\n")
	if errs != nil {
		b.WriteString(errs.Render())
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Correct the errors and resubmit using the same %q schema. Return only valid JSON.", schemaName)
	return b.String()
}

func responseContent(resp *llm.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Content
}
