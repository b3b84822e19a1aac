package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/rtodash/internal/logging"
)

type fakeChat struct {
	err error
}

func (f *fakeChat) Chat(_ context.Context, msg string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + msg, nil
}

func TestChatSend(t *testing.T) {
	c := NewChat(&fakeChat{}, logging.Discard(), 10)

	reply, err := c.Send(context.Background(), "  when is my next batch?  ")
	require.NoError(t, err)
	assert.Equal(t, "echo: when is my next batch?", reply)

	tr := c.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, "bot", tr[0].From)
	assert.Equal(t, "user", tr[1].From)
	assert.Equal(t, "when is my next batch?", tr[1].Text)
	assert.Equal(t, reply, tr[2].Text)
}

func TestChatSend_Failure(t *testing.T) {
	c := NewChat(&fakeChat{err: errors.New("503")}, logging.Discard(), 10)

	_, err := c.Send(context.Background(), "hello")
	require.Error(t, err)
	tr := c.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, chatFallback, tr[2].Text)
}

func TestChatSend_Empty(t *testing.T) {
	c := NewChat(&fakeChat{}, logging.Discard(), 10)
	_, err := c.Send(context.Background(), "   ")
	assert.Error(t, err)
	assert.Len(t, c.Transcript(), 1)
}

func TestChatTranscriptBounded(t *testing.T) {
	c := NewChat(&fakeChat{}, logging.Discard(), 4)
	for i := 0; i < 5; i++ {
		_, err := c.Send(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	tr := c.Transcript()
	require.Len(t, tr, 4)
	assert.Equal(t, "echo: msg 4", tr[3].Text)

	c.Reset()
	assert.Len(t, c.Transcript(), 1)
}
