package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"macronata/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type fakeProvider struct {
	reply string
	err   error
	got   []Message
}

func (f *fakeProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	f.got = messages
	return f.reply, f.err
}

func performChat(h *Handler, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	c.Request = httptest.NewRequest(http.MethodPost, "/chat", &buf)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Chat(c)
	return rec
}

func TestChat_RelaysReply(t *testing.T) {
	provider := &fakeProvider{reply: "Lekker question! What do you think 7 groups of 8 makes?"}
	h := NewHandler(provider)

	rec := performChat(h, ChatRequest{Message: "What is 7 x 8?"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, provider.reply, resp.Reply)

	// The persona prompt always leads the conversation.
	require.NotEmpty(t, provider.got)
	assert.Equal(t, "system", provider.got[0].Role)
	assert.Equal(t, Message{Role: "user", Content: "What is 7 x 8?"}, provider.got[len(provider.got)-1])
}

func TestChat_FallsBackOnProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream down")}
	h := NewHandler(provider)

	rec := performChat(h, ChatRequest{Message: "Help with my essay"})

	// Outages degrade to a canned reply, never an error status.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Eish! My brain is a bit slow right now. Try again later.", resp.Reply)
}

func TestChat_MessageRequired(t *testing.T) {
	h := NewHandler(&fakeProvider{reply: "hi"})

	rec := performChat(h, map[string]interface{}{"history": []Message{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_HistoryPassedThrough(t *testing.T) {
	provider := &fakeProvider{reply: "Sharp sharp!"}
	h := NewHandler(provider)

	rec := performChat(h, ChatRequest{
		Message: "And 9 x 8?",
		History: []Message{
			{Role: "user", Content: "What is 7 x 8?"},
			{Role: "assistant", Content: "56, well done!"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, provider.got, 4)
	assert.Equal(t, "56, well done!", provider.got[2].Content)
}
