package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
)

// abortedTooManyIterations is shown when the model keeps searching without
// converging on an answer.
const abortedTooManyIterations = "Ich konnte innerhalb des Suchbudgets keine Antwort finden. Bitte stelle eine spezifischere Frage."

const abortedUnexpectedStop = "Die Anfrage konnte nicht abgeschlossen werden. Bitte versuche es erneut."

// messageCreator is the slice of the Anthropic client the loop needs.
// *anthropic.MessageService satisfies it.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Result is the outcome of one question. Aborted results still carry a
// user-facing Answer explaining what happened, plus any sources gathered
// before the abort.
type Result struct {
	Answer  string
	Sources []Source
	Aborted bool
}

// Loop runs the bounded tool-use conversation: the model may call
// search_documents repeatedly, each round-trip counts as one iteration,
// and the loop gives up after maxIterations rather than searching forever.
type Loop struct {
	messages      messageCreator
	retriever     *Retriever
	logger        arbor.ILogger
	model         anthropic.Model
	maxTokens     int64
	maxIterations int
}

type LoopConfig struct {
	Messages      messageCreator
	Retriever     *Retriever
	Logger        arbor.ILogger
	Model         string
	MaxTokens     int64
	MaxIterations int
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &Loop{
		messages:      cfg.Messages,
		retriever:     cfg.Retriever,
		logger:        cfg.Logger,
		model:         anthropic.Model(cfg.Model),
		maxTokens:     cfg.MaxTokens,
		maxIterations: cfg.MaxIterations,
	}
}

func searchTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        searchToolName,
			Description: anthropic.String(searchToolDescription),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Deutsche Suchphrase für die semantische Suche",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Anzahl der Treffer (Standard 5, Maximum 10)",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Run answers one question against the prior conversation history. History
// holds completed user/assistant turns only; intermediate tool traffic from
// earlier questions is not carried over.
func (l *Loop) Run(ctx context.Context, history []anthropic.MessageParam, question string) (Result, error) {
	transcript := make([]anthropic.MessageParam, 0, len(history)+1)
	transcript = append(transcript, history...)
	transcript = append(transcript, anthropic.NewUserMessage(anthropic.NewTextBlock(question)))

	seen := make(map[sourceKey]struct{})
	var sources []Source

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		resp, err := l.messages.New(ctx, anthropic.MessageNewParams{
			Model:     l.model,
			MaxTokens: l.maxTokens,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  transcript,
			Tools:     []anthropic.ToolUnionParam{searchTool()},
		})
		if err != nil {
			return Result{}, fmt.Errorf("model request: %w", err)
		}

		switch resp.StopReason {
		case "end_turn", "max_tokens", "stop_sequence":
			return Result{Answer: collectText(resp), Sources: sources}, nil

		case "tool_use":
			transcript = append(transcript, resp.ToParam())
			results, err := l.executeTools(ctx, resp, seen, &sources)
			if err != nil {
				return Result{}, err
			}
			transcript = append(transcript, anthropic.NewUserMessage(results...))

		default:
			l.logger.Warn().Str("stop_reason", string(resp.StopReason)).Msg("Unexpected stop reason")
			return Result{Answer: abortedUnexpectedStop, Sources: sources, Aborted: true}, nil
		}
	}

	l.logger.Warn().Int("iterations", l.maxIterations).Msg("Iteration budget exhausted")
	return Result{Answer: abortedTooManyIterations, Sources: sources, Aborted: true}, nil
}

// executeTools runs every tool call of one assistant turn in order and
// returns the matching tool_result blocks for a single user turn.
func (l *Loop) executeTools(ctx context.Context, resp *anthropic.Message, seen map[sourceKey]struct{}, sources *[]Source) ([]anthropic.ContentBlockParamUnion, error) {
	var results []anthropic.ContentBlockParamUnion
	for _, block := range resp.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		if toolUse.Name != searchToolName {
			results = append(results, anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("Unbekanntes Werkzeug: %s", toolUse.Name), true))
			continue
		}

		var input searchInput
		if err := json.Unmarshal(toolUse.Input, &input); err != nil || input.Query == "" {
			results = append(results, anthropic.NewToolResultBlock(toolUse.ID, "Ungültige Suchanfrage: query fehlt.", true))
			continue
		}

		text, found, err := l.retriever.Search(ctx, input.Query, input.Limit)
		if err != nil {
			return nil, fmt.Errorf("search_documents %q: %w", input.Query, err)
		}
		for _, src := range found {
			if _, dup := seen[src.key()]; dup {
				continue
			}
			seen[src.key()] = struct{}{}
			*sources = append(*sources, src)
		}
		results = append(results, anthropic.NewToolResultBlock(toolUse.ID, text, false))
	}
	return results, nil
}

func collectText(resp *anthropic.Message) string {
	var answer string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			if answer != "" {
				answer += "\n"
			}
			answer += text.Text
		}
	}
	return answer
}
