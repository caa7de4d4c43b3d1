// File: internal/agent/agent.go

// Package agent runs the chat loop: the model decides between answering
// directly and calling one of the registered tools, and tool observations are
// fed back until it produces a final reply.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
)

const defaultMaxToolRounds = 6

// Tool is one capability the model may invoke. Run receives the model's raw
// argument string and returns an observation to feed back.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, argument string) (string, error)
}

// Action is the decision the model returns each round.
type Action struct {
	Thought  string `json:"thought,omitempty"`
	Type     string `json:"type"`
	Tool     string `json:"tool,omitempty"`
	Argument string `json:"argument,omitempty"`
	Reply    string `json:"reply,omitempty"`
}

const (
	actionTool  = "tool_call"
	actionFinal = "final_answer"
)

// Agent owns the tool registry and the per-message decision loop.
type Agent struct {
	logger    *zap.Logger
	llm       schemas.LLMClient
	tools     map[string]Tool
	toolOrder []string
	maxRounds int
}

// New creates an agent. maxRounds bounds tool calls per message so a confused
// model cannot loop forever.
func New(logger *zap.Logger, llm schemas.LLMClient, maxRounds int) *Agent {
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	return &Agent{
		logger:    logger.Named("agent"),
		llm:       llm,
		tools:     make(map[string]Tool),
		maxRounds: maxRounds,
	}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (a *Agent) Register(tool Tool) {
	if _, exists := a.tools[tool.Name]; !exists {
		a.toolOrder = append(a.toolOrder, tool.Name)
	}
	a.tools[tool.Name] = tool
}

// Chat answers one user message, running tools as the model requests them.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	transcript := &strings.Builder{}
	fmt.Fprintf(transcript, "Student message: %s\n", message)

	for round := 0; round < a.maxRounds; round++ {
		raw, err := a.llm.Generate(ctx, schemas.GenerationRequest{
			SystemPrompt: a.systemPrompt(),
			UserPrompt:   transcript.String(),
		})
		if err != nil {
			return "", fmt.Errorf("generating agent action: %w", err)
		}

		action, err := a.parseActionResponse(raw)
		if err != nil {
			// Some models answer in plain prose despite the protocol. Treat
			// that as the final reply rather than failing the chat.
			a.logger.Warn("Unparsable agent action; using raw text as reply", zap.Error(err))
			return strings.TrimSpace(raw), nil
		}

		switch action.Type {
		case actionFinal:
			return action.Reply, nil

		case actionTool:
			observation := a.runTool(ctx, action)
			fmt.Fprintf(transcript, "\nTool %q observation:\n%s\n", action.Tool, observation)

		default:
			return "", fmt.Errorf("agent returned unknown action type %q", action.Type)
		}
	}

	// The round budget ran out mid-investigation; ask for a best-effort
	// answer from what has been gathered so far.
	fmt.Fprint(transcript, "\nNo further tool calls are allowed. Answer now with what you have.\n")
	raw, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: a.systemPrompt(),
		UserPrompt:   transcript.String(),
	})
	if err != nil {
		return "", fmt.Errorf("generating final answer after round budget: %w", err)
	}
	if action, err := a.parseActionResponse(raw); err == nil && action.Reply != "" {
		return action.Reply, nil
	}
	return strings.TrimSpace(raw), nil
}

// runTool executes the requested tool; failures become observations so the
// model can recover or apologize instead of the chat erroring out.
func (a *Agent) runTool(ctx context.Context, action Action) string {
	tool, ok := a.tools[action.Tool]
	if !ok {
		a.logger.Warn("Model requested unknown tool", zap.String("tool", action.Tool))
		return fmt.Sprintf("error: no tool named %q is available", action.Tool)
	}

	a.logger.Info("Running agent tool",
		zap.String("tool", action.Tool),
		zap.String("argument", action.Argument))

	result, err := tool.Run(ctx, action.Argument)
	if err != nil {
		a.logger.Warn("Agent tool failed", zap.String("tool", action.Tool), zap.Error(err))
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

func (a *Agent) systemPrompt() string {
	b := &strings.Builder{}
	b.WriteString(`You are a helpful assistant for a university student. You answer questions about courses, assignments, grades, announcements, advisors, and can navigate the registration portal on the student's behalf.

Respond with a single JSON object, nothing else. To call a tool:
{"thought": "...", "type": "tool_call", "tool": "<name>", "argument": "<input>"}
To answer the student:
{"thought": "...", "type": "final_answer", "reply": "<answer>"}

Available tools:
`)
	for _, name := range a.toolOrder {
		tool := a.tools[name]
		fmt.Fprintf(b, "- %s: %s\n", tool.Name, tool.Description)
	}
	return b.String()
}

var jsonBlockRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))

// parseActionResponse extracts the action JSON from a model response that may
// be wrapped in markdown fences or surrounded by prose.
func (a *Agent) parseActionResponse(response string) (Action, error) {
	response = strings.TrimSpace(response)
	var action Action
	var jsonStringToParse string

	matches := jsonBlockRegex.FindStringSubmatch(response)
	if len(matches) > 1 {
		jsonStringToParse = strings.TrimSpace(matches[1])
	} else {
		firstBracket := strings.Index(response, "{")
		lastBracket := strings.LastIndex(response, "}")
		if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
			jsonStringToParse = response[firstBracket : lastBracket+1]
		} else {
			jsonStringToParse = response
		}
	}

	if jsonStringToParse == "" {
		return Action{}, fmt.Errorf("could not find any JSON in the LLM response")
	}

	if err := json.Unmarshal([]byte(jsonStringToParse), &action); err != nil {
		a.logger.Warn("Failed to unmarshal LLM response",
			zap.String("raw_response", response),
			zap.String("extracted_json", jsonStringToParse),
			zap.Error(err))
		return Action{}, fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}

	if action.Type == "" {
		return Action{}, fmt.Errorf("LLM response missing required 'type' field after successful JSON parsing")
	}
	return action, nil
}
