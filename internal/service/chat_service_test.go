package service

import (
	"context"
	"testing"

	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) chatSend(t *testing.T, userId uuid.UUID, prompt string) *dto.SendChatMessageResponse {
	t.Helper()
	res, err := h.chat.SendMessage(context.Background(), userId, &dto.SendChatMessageRequest{Prompt: prompt})
	require.NoError(t, err)
	return res
}

func (h *harness) runStream(t *testing.T, streamId string) textstream.Result {
	t.Helper()
	active, err := h.streams.Start(context.Background(), streamId)
	require.NoError(t, err)
	res, err := active.Run(context.Background(), nil)
	require.NoError(t, err)
	return res
}

func TestChatService_SendMessageCreatesOwnedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sent := h.chatSend(t, h.userId, "  What is a good first step?  ")

	owner, err := h.store.FindOwner(ctx, sent.StreamId)
	require.NoError(t, err)
	assert.Equal(t, textstream.Owner{Type: constant.StreamOwnerUserMessage, ID: sent.MessageId.String()}, owner)

	snap, err := h.store.Read(ctx, sent.StreamId)
	require.NoError(t, err)
	assert.Equal(t, textstream.StatusPending, snap.Status)

	msg, err := h.chat.FindMessageByStreamID(ctx, sent.StreamId)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "What is a good first step?", msg.Prompt)

	_, err = h.chat.SendMessage(ctx, h.userId, &dto.SendChatMessageRequest{Prompt: " \n "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChatService_ListMessagesJoinsStreamBody(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "Hi"}, llm.StreamChunk{Content: " there"})
	ctx := context.Background()

	first := h.chatSend(t, h.userId, "hello")
	second := h.chatSend(t, h.userId, "again")
	h.chatSend(t, uuid.New(), "someone else")
	h.runStream(t, first.StreamId)

	messages, err := h.chat.ListMessages(ctx, h.userId)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "hello", messages[0].Prompt)
	require.NotNil(t, messages[0].Response)
	assert.Equal(t, "Hi there", messages[0].Response.Text)
	assert.Equal(t, "done", messages[0].Response.Status)

	assert.Equal(t, second.StreamId, messages[1].StreamId)
	require.NotNil(t, messages[1].Response)
	assert.Equal(t, "pending", messages[1].Response.Status)
}

func TestChatService_ClearMessagesOnlyTouchesOwnChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other := uuid.New()

	h.chatSend(t, h.userId, "one")
	h.chatSend(t, h.userId, "two")
	h.chatSend(t, other, "mine")

	res, err := h.chat.ClearMessages(ctx, h.userId)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)

	mine, err := h.chat.ListMessages(ctx, h.userId)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := h.chat.ListMessages(ctx, other)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestUserMessageProducer_ContinuesConversation(t *testing.T) {
	h := newHarness(t, llm.StreamChunk{Content: "Hello"})

	first := h.chatSend(t, h.userId, "hi")
	res := h.runStream(t, first.StreamId)
	assert.Equal(t, textstream.StatusDone, res.Status)

	h.chatSend(t, h.userId, "unanswered")
	second := h.chatSend(t, h.userId, "how are you?")
	h.chatSend(t, h.userId, "sent later")
	h.chatSend(t, uuid.New(), "not mine")

	h.runStream(t, second.StreamId)

	h.provider.mu.Lock()
	history := h.provider.history
	tools := h.provider.options.Tools
	h.provider.mu.Unlock()

	require.Len(t, history, 5)
	assert.Equal(t, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.ChatSystemPromptV1}, history[0])
	assert.Equal(t, llm.Message{Role: constant.ChatMessageRoleUser, Content: "hi"}, history[1])
	assert.Equal(t, llm.Message{Role: constant.ChatMessageRoleAssistant, Content: "Hello"}, history[2])
	assert.Equal(t, llm.Message{Role: constant.ChatMessageRoleUser, Content: "unanswered"}, history[3])
	assert.Equal(t, llm.Message{Role: constant.ChatMessageRoleUser, Content: "how are you?"}, history[4])
	assert.Empty(t, tools)

	body, err := h.streams.Read(context.Background(), second.StreamId)
	require.NoError(t, err)
	assert.Equal(t, "Hello", body.Text)
}

func TestUserMessageProducer_MismatchedOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.store.CreateOwned(ctx, textstream.Owner{Type: constant.StreamOwnerUserMessage, ID: uuid.NewString()})
	require.NoError(t, err)

	_, err = h.streams.Start(ctx, id)
	assert.ErrorIs(t, err, ErrNoProducer)
}
