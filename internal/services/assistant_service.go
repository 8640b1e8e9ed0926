package services

import (
	"context"
	"hash/fnv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// therapistSystemPrompt configures the LLM variant. Treated as static
// configuration; the rule tables below drive the offline variant.
const therapistSystemPrompt = `You are a compassionate, empathetic, and professional mental health supporter. Listen actively, validate feelings without judgment, ask open-ended questions, suggest evidence-based coping techniques, and keep replies concise (2-4 sentences). Never diagnose or prescribe medication. Gently suggest professional help when it seems needed.`

const assistantFallbackReply = "I'm here to listen and support you. Could you tell me more about how you're feeling?"

const assistantComplexReply = "That sounds like something best discussed with one of our doctors. Would you like to schedule a session?"

type responseRule struct {
	patterns  []string
	responses []string
}

// responseRules are the offline assistant's pattern table. Matching is
// first-rule-wins on a lowercase substring check; the reply is picked
// deterministically from the rule's variants so the same prompt always
// gets the same answer.
var responseRules = []responseRule{
	{
		patterns: []string{"hi", "hello", "hey"},
		responses: []string{
			"Hello! I'm here to support you. How are you feeling today?",
			"Hi there! Whenever you're ready, you can share what's on your mind.",
		},
	},
	{
		patterns: []string{"sad", "depressed", "unhappy", "down"},
		responses: []string{
			"I'm really sorry you're feeling this way. If you'd like, you can tell me more about what's been bothering you.",
			"It's okay to feel down sometimes. If you want to share more, I'm here for you.",
		},
	},
	{
		patterns: []string{"anxious", "anxiety", "worried", "stress"},
		responses: []string{
			"Anxiety can be tough. If you want, we can try a calming exercise together or talk about what's making you anxious.",
			"If you're feeling stressed, sometimes talking about it can help. Would you like to try?",
		},
	},
	{
		patterns: []string{"lonely", "alone", "isolated"},
		responses: []string{
			"Feeling lonely can be really hard. If you want to talk about it, I'm here for you.",
			"You're not alone, even if it feels that way. Would you like to share more?",
		},
	},
	{
		patterns: []string{"angry", "frustrated", "irritated"},
		responses: []string{
			"Anger is a valid emotion. If you want to talk about what's causing it, I'm here to listen.",
			"It's okay to feel frustrated. Sometimes expressing it can help. Would you like to share more?",
		},
	},
	{
		patterns: []string{"happy", "good", "better", "improved"},
		responses: []string{
			"I'm glad to hear you're feeling better. If you want to talk about what helped, I'm here to listen.",
			"That's wonderful! Would you like to share what's been going well?",
		},
	},
	{
		patterns: []string{"breathe", "breathing", "exercise"},
		responses: []string{
			"Let's try a simple breathing exercise together: inhale slowly for 4 seconds, hold for 4, and exhale for 6. Would you like to do a few rounds?",
		},
	},
	{
		patterns: []string{"help", "support"},
		responses: []string{
			"Of course, I'm here to help. Is there something specific you'd like to talk about or get support with?",
		},
	},
	{
		patterns: []string{"thank", "thanks"},
		responses: []string{
			"You're very welcome. Remember, you're not alone in this.",
		},
	},
}

// complexKeywords route a question to the human-doctor suggestion instead
// of a canned reply.
var complexKeywords = []string{
	"diagnose", "prescribe", "medical advice", "treatment", "medication",
	"medicine", "prescription", "symptom", "disease", "condition",
	"emergency", "urgent", "specialist", "hospital",
}

type completionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AssistantService answers patient chat-support messages with two
// variants: a rule-based matcher that works offline, and an LLM-backed
// therapist for free-form conversation.
type AssistantService struct {
	client completionClient
	model  string
}

func NewAssistantService(apiKey string, model string) *AssistantService {
	service := &AssistantService{model: model}
	if model == "" {
		service.model = openai.GPT4oMini
	}
	if apiKey != "" {
		service.client = openai.NewClient(apiKey)
	}
	return service
}

// RuleReply matches the message against the pattern table.
func (s *AssistantService) RuleReply(message string) string {
	lowered := strings.ToLower(strings.TrimSpace(message))
	if lowered == "" {
		return assistantFallbackReply
	}

	for _, keyword := range complexKeywords {
		if strings.Contains(lowered, keyword) {
			return assistantComplexReply
		}
	}

	for _, rule := range responseRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lowered, pattern) {
				return rule.responses[pickVariant(lowered, len(rule.responses))]
			}
		}
	}
	return assistantFallbackReply
}

// AITurn is one turn of the LLM conversation history.
type AITurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIReply sends the conversation history to the LLM with the therapist
// prompt. On any failure the fixed fallback is returned together with the
// error so callers can still answer the user.
func (s *AssistantService) AIReply(ctx context.Context, history []AITurn) (string, error) {
	if s.client == nil {
		return s.ruleFallback(history), nil
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: therapistSystemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return assistantFallbackReply, err
	}
	if len(resp.Choices) == 0 {
		return assistantFallbackReply, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *AssistantService) ruleFallback(history []AITurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "assistant" {
			return s.RuleReply(history[i].Content)
		}
	}
	return assistantFallbackReply
}

func pickVariant(message string, variants int) int {
	if variants <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return int(h.Sum32() % uint32(variants))
}
