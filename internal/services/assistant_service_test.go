package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestRuleReplyRoutesComplexTopicsToDoctor(t *testing.T) {
	service := NewAssistantService("", "")

	for _, message := range []string{
		"Can you diagnose me?",
		"what medication should I take",
		"is this an EMERGENCY",
	} {
		if got := service.RuleReply(message); got != assistantComplexReply {
			t.Fatalf("%q: expected the doctor suggestion, got %q", message, got)
		}
	}
}

func TestRuleReplyMatchesPatternTable(t *testing.T) {
	service := NewAssistantService("", "")

	reply := service.RuleReply("I feel so anxious lately")
	if !strings.Contains(strings.ToLower(reply), "anxi") && !strings.Contains(strings.ToLower(reply), "stressed") {
		t.Fatalf("expected an anxiety response, got %q", reply)
	}
}

func TestRuleReplyIsDeterministic(t *testing.T) {
	service := NewAssistantService("", "")

	first := service.RuleReply("hello there")
	for i := 0; i < 5; i++ {
		if got := service.RuleReply("hello there"); got != first {
			t.Fatalf("same prompt produced different replies: %q vs %q", first, got)
		}
	}
}

func TestRuleReplyFallsBackOnNoMatch(t *testing.T) {
	service := NewAssistantService("", "")

	if got := service.RuleReply("zxqv"); got != assistantFallbackReply {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := service.RuleReply("   "); got != assistantFallbackReply {
		t.Fatalf("blank input: expected fallback, got %q", got)
	}
}

type stubCompletionClient struct {
	reply string
	err   error
	seen  openai.ChatCompletionRequest
}

func (s *stubCompletionClient) CreateChatCompletion(
	_ context.Context,
	request openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	s.seen = request
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply}},
		},
	}, nil
}

func TestNewAssistantServiceDefaultsModel(t *testing.T) {
	service := NewAssistantService("", "")
	if service.model != openai.GPT4oMini {
		t.Fatalf("expected %s as the default model, got %s", openai.GPT4oMini, service.model)
	}

	pinned := NewAssistantService("", openai.GPT4)
	if pinned.model != openai.GPT4 {
		t.Fatalf("configured model was overridden, got %s", pinned.model)
	}
}

func TestAIReplyPrependsTherapistPrompt(t *testing.T) {
	stub := &stubCompletionClient{reply: "That sounds difficult. What has helped before?"}
	service := &AssistantService{client: stub, model: openai.GPT4oMini}

	reply, err := service.AIReply(context.Background(), []AITurn{
		{Role: "user", Content: "I can't sleep"},
		{Role: "assistant", Content: "How long has this been going on?"},
		{Role: "user", Content: "about a month"},
	})
	if err != nil {
		t.Fatalf("AIReply: %v", err)
	}
	if reply != stub.reply {
		t.Fatalf("expected model reply, got %q", reply)
	}

	if stub.seen.Model != openai.GPT4oMini {
		t.Fatalf("request carried the wrong model: %s", stub.seen.Model)
	}
	if len(stub.seen.Messages) != 4 {
		t.Fatalf("expected system prompt + 3 turns, got %d messages", len(stub.seen.Messages))
	}
	if stub.seen.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message must be the system prompt, got role %s", stub.seen.Messages[0].Role)
	}
	if stub.seen.Messages[2].Role != openai.ChatMessageRoleAssistant {
		t.Fatalf("assistant turn lost its role, got %s", stub.seen.Messages[2].Role)
	}
}

func TestAIReplyReturnsFallbackOnModelFailure(t *testing.T) {
	stub := &stubCompletionClient{err: errors.New("rate limited")}
	service := &AssistantService{client: stub, model: openai.GPT4oMini}

	reply, err := service.AIReply(context.Background(), []AITurn{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected the model error to surface")
	}
	if reply != assistantFallbackReply {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestAIReplyWithoutClientUsesRules(t *testing.T) {
	service := NewAssistantService("", "")

	reply, err := service.AIReply(context.Background(), []AITurn{
		{Role: "user", Content: "I need medical advice"},
	})
	if err != nil {
		t.Fatalf("AIReply: %v", err)
	}
	if reply != assistantComplexReply {
		t.Fatalf("expected offline doctor suggestion, got %q", reply)
	}
}
