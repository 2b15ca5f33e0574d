package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	body, err := EncodeEvent("book.created", map[string]interface{}{"book_id": 3, "title": "Dune"}, at)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"book.created","occurred_at":"2024-05-01T12:00:00Z","data":{"book_id":3,"title":"Dune"}}`, string(body))

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "book.created", ev.Type)
	assert.True(t, at.Equal(ev.OccurredAt))
	assert.Equal(t, "Dune", ev.Data["title"])
}

func TestEncodeEvent_RequiresType(t *testing.T) {
	_, err := EncodeEvent("", nil, time.Now())
	assert.Error(t, err)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestPublishEvent_WithoutChannel(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.PublishEvent("book.created", nil))
	assert.Error(t, c.ConsumeEvents(LogEvent))
}
