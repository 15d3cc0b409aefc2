package rag

import (
	"context"
	"fmt"

	"nutrichat/backend/pkg/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const answerTemplate = `You are a nutrition chatbot for the University of Rochester Dining Hall.
Your goal is to provide the best nutritional advice and food recommendations to students,
strictly based on the list of available foods at the dining hall.

**Instructions:**
1.  **Nutritional Focus:** Prioritize nutritional value for bodybuilding and general health when giving advice.
2.  **Dining Hall Foods ONLY:**  Your recommendations MUST come from the 'Available Foods' list below. Do not recommend foods outside of this list.
3.  **Be Concise and Actionable:** Provide clear, direct advice and food suggestions.
4.  **Professional Style:** Maintain a professional yet approachable tone, appropriate for a University setting.

**Conversation History:**
{{.history}}

**Available Foods:**
{{.context}}

**Student's Question:** {{.question}}

Response:`

// ContextRetriever supplies the context block for a question
type ContextRetriever interface {
	Context(ctx context.Context, query string) (string, error)
}

// Pipeline is the retrieval-augmented generation chain: retrieve snippets,
// fill the prompt template, call the chat model. It implements
// service.Generator.
type Pipeline struct {
	llm       llms.Model
	retriever ContextRetriever
	prompt    prompts.PromptTemplate
	log       *logger.Logger
}

// NewPipeline assembles the generation chain
func NewPipeline(llm llms.Model, retriever ContextRetriever, log *logger.Logger) *Pipeline {
	prompt := prompts.NewPromptTemplate(answerTemplate, []string{"history", "context", "question"})
	return &Pipeline{
		llm:       llm,
		retriever: retriever,
		prompt:    prompt,
		log:       log,
	}
}

// Generate answers a question conditioned on retrieved context and the
// rendered conversation history
func (p *Pipeline) Generate(ctx context.Context, question, history string) (string, error) {
	contextBlock, err := p.retriever.Context(ctx, question)
	if err != nil {
		return "", fmt.Errorf("retrieval: %w", err)
	}

	prompt, err := p.prompt.Format(map[string]any{
		"history":  history,
		"context":  contextBlock,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("prompt formatting: %w", err)
	}

	reply, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generation: %w", err)
	}

	p.log.Debug("generated reply", "question_len", len(question), "reply_len", len(reply))
	return reply, nil
}
