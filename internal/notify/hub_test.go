package notify

import (
	"testing"
	"time"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(session, msg string) models.Notification {
	return models.Notification{SessionID: session, Kind: models.NotificationError, Message: msg}
}

func TestHub_DrainBuffersPerSession(t *testing.T) {
	h := NewHub(0)

	h.Notify(note("s1", "first"))
	h.Notify(note("s1", "second"))
	h.Notify(note("s2", "other"))

	got := h.Drain("s1")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.False(t, got[0].Time.IsZero(), "time is stamped")

	assert.Empty(t, h.Drain("s1"), "drain clears the buffer")
	assert.Len(t, h.Drain("s2"), 1)
	assert.NotNil(t, h.Drain("unknown"))
}

func TestHub_BufferIsBounded(t *testing.T) {
	h := NewHub(2)

	h.Notify(note("s", "a"))
	h.Notify(note("s", "b"))
	h.Notify(note("s", "c"))

	got := h.Drain("s")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "c", got[1].Message)
}

func TestHub_SubscribeReceivesLive(t *testing.T) {
	h := NewHub(4)
	h.Notify(note("s", "queued"))

	ch, cancel := h.Subscribe("s")
	defer cancel()

	select {
	case n := <-ch:
		assert.Equal(t, "queued", n.Message, "pending notifications are replayed")
	case <-time.After(time.Second):
		t.Fatal("expected replayed notification")
	}

	h.Notify(note("s", "live"))
	select {
	case n := <-ch:
		assert.Equal(t, "live", n.Message)
	case <-time.After(time.Second):
		t.Fatal("expected live notification")
	}

	assert.Empty(t, h.Drain("s"), "delivered notifications are not buffered")
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("s")

	cancel()
	cancel() // safe to call twice

	_, ok := <-ch
	assert.False(t, ok)

	h.Notify(note("s", "after"))
	assert.Len(t, h.Drain("s"), 1, "no subscriber left, so it is buffered")
}

func TestHub_Forget(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("s")
	defer cancel()

	h.Forget("s")
	_, ok := <-ch
	assert.False(t, ok)

	h.Notify(note("s2", "keep"))
	h.Forget("s")
	assert.Len(t, h.Drain("s2"), 1)
}

func TestNotifierFunc(t *testing.T) {
	var got []string
	var n Notifier = NotifierFunc(func(n models.Notification) { got = append(got, n.Message) })

	n.Notify(note("s", "hello"))
	Discard.Notify(note("s", "ignored"))

	assert.Equal(t, []string{"hello"}, got)
}
