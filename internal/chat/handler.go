package chat

import (
	"net/http"

	"macronata/internal/logger"
	"macronata/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Tinny's personality. Tinny guides learners through CAPS & IEB material
// and refuses to just do the homework.
const systemPrompt = `You are Tinny, a warm and encouraging AI tutor for South African school kids (CAPS & IEB curriculum).
- You speak English with South African flair (use 'shame', 'lekker', 'howzit' naturally).
- You NEVER do the homework for the student. You guide them.
- If asked to write an essay, ask guiding questions instead.
- Keep answers short, punchy, and helpful.`

// fallbackReply is returned whenever the completion backend fails. Chat is
// best-effort; an outage must never surface as an error to the learner.
const fallbackReply = "Eish! My brain is a bit slow right now. Try again later."

type ChatRequest struct {
	Message string    `json:"message" binding:"required"`
	History []Message `json:"history"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type Handler struct {
	provider Provider
}

func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// Chat relays one learner message (plus prior turns) to the AI tutor.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	messages := buildPromptMessages(req.History, req.Message)

	reply, err := h.provider.Complete(c.Request.Context(), messages)
	if err != nil {
		logger.Errorf("Chat completion failed: %v", err)
		metrics.RecordChatReply("fallback")
		c.JSON(http.StatusOK, ChatResponse{Reply: fallbackReply})
		return
	}

	metrics.RecordChatReply("ok")
	c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

func buildPromptMessages(history []Message, userMessage string) []Message {
	messages := []Message{{Role: "system", Content: systemPrompt}}

	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		messages = append(messages, m)
	}

	messages = append(messages, Message{Role: "user", Content: userMessage})
	return messages
}
