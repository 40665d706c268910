package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/loreseek/loreseek/logger"
	"github.com/loreseek/loreseek/tool"
)

// maxToolRounds bounds the tool-execution loop per chat request so a
// model that keeps calling tools cannot spin forever.
const maxToolRounds = 5

// chatRequest is the accepted subset of the chat completions request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is a chat.completion-shaped response.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int               `json:"index"`
	Message      chatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type chatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// OpenAIServer exposes the tool registry through an OpenAI-compatible
// chat endpoint. It advertises the registry tools as function specs to
// an upstream model, executes the calls the model makes, feeds results
// back as tool messages, and returns the model's final assistant turn.
type OpenAIServer struct {
	reg    *tool.Registry
	tc     *tool.Context
	client openai.Client
	model  string
}

// NewOpenAIServer builds the adapter against the configured upstream.
func NewOpenAIServer(reg *tool.Registry, tc *tool.Context, apiKey, baseURL, model string) *OpenAIServer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIServer{
		reg:    reg,
		tc:     tc,
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Handler returns the HTTP handler for POST /v1/chat/completions.
func (s *OpenAIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChat)
	return mux
}

func (s *OpenAIServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Stream {
		writeOpenAIError(w, http.StatusBadRequest, "streaming is not supported")
		return
	}
	if len(req.Messages) == 0 {
		writeOpenAIError(w, http.StatusBadRequest, "messages is required")
		return
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: convertMessages(req.Messages),
		Tools:    s.functionSpecs(),
	}

	var completion *openai.ChatCompletion
	for round := 0; ; round++ {
		var err error
		completion, err = s.client.Chat.Completions.New(r.Context(), params)
		if err != nil {
			writeOpenAIError(w, http.StatusBadGateway, "upstream completion failed: "+err.Error())
			return
		}
		if len(completion.Choices) == 0 {
			writeOpenAIError(w, http.StatusBadGateway, "upstream returned no choices")
			return
		}

		choice := completion.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			break
		}
		if round >= maxToolRounds {
			writeOpenAIError(w, http.StatusBadGateway,
				fmt.Sprintf("model did not finish within %d tool rounds", maxToolRounds))
			return
		}

		params.Messages = append(params.Messages, choice.Message.ToParam())
		for _, call := range choice.Message.ToolCalls {
			content := s.executeToolCall(r, call.Function.Name, call.Function.Arguments)
			params.Messages = append(params.Messages, openai.ToolMessage(content, call.ID))
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ID:      completion.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Index: 0,
			Message: chatChoiceMessage{
				Role:    "assistant",
				Content: completion.Choices[0].Message.Content,
			},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	})
}

// executeToolCall runs one model-requested tool through the registry
// and renders the outcome as the tool message content. Failures go back
// to the model as JSON rather than aborting the chat, so it can adjust
// its next call.
func (s *OpenAIServer) executeToolCall(r *http.Request, name, rawArgs string) string {
	var args map[string]any
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return errJSON("invalid tool arguments: " + err.Error())
		}
	}

	res, err := s.reg.Invoke(r.Context(), name, args, s.tc)
	if errors.Is(err, tool.ErrUnknownTool) {
		return errJSON(err.Error())
	}
	if err != nil {
		return errJSON(err.Error())
	}
	if !res.Success {
		return errJSON(res.Error)
	}

	payload, err := json.Marshal(res.Data)
	if err != nil {
		return errJSON("failed to encode tool result: " + err.Error())
	}
	logger.Debugf("tool %s executed for chat completion", name)
	return string(payload)
}

// functionSpecs advertises the registry tools in OpenAI function form.
func (s *OpenAIServer) functionSpecs() []openai.ChatCompletionToolParam {
	defs := s.reg.List()
	specs := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		specs = append(specs, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema.JSONSchema()),
			},
		})
	}
	return specs
}

func convertMessages(msgs []chatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func errJSON(msg string) string {
	payload, _ := json.Marshal(map[string]any{"error": msg})
	return string(payload)
}

func writeOpenAIError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "invalid_request_error",
		},
	})
}
