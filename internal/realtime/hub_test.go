package realtime

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	messages [][]byte
	fail     bool
}

func (c *fakeClient) Send(message []byte) bool {
	if c.fail {
		return false
	}
	c.messages = append(c.messages, message)
	return true
}

func (c *fakeClient) Close() {}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	phone, laptop, broken := &fakeClient{}, &fakeClient{}, &fakeClient{fail: true}
	hub.Register("u1", phone)
	hub.Register("u1", laptop)
	hub.Register("u1", broken)
	hub.Register("u2", &fakeClient{})

	delivered := hub.Broadcast("u1", []byte(`{"type":"notification"}`))

	assert.Equal(t, 2, delivered)
	assert.Len(t, phone.messages, 1)
	assert.Len(t, laptop.messages, 1)
	assert.Equal(t, 0, hub.Broadcast("nobody", []byte("x")))
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	c := &fakeClient{}
	hub.Register("u1", c)
	require.Equal(t, 1, hub.Connections("u1"))

	hub.Unregister("u1", c)
	hub.Unregister("u1", c)

	assert.Equal(t, 0, hub.Connections("u1"))
	assert.Equal(t, 0, hub.Broadcast("u1", []byte("x")))
}

func TestRedisRelayHandle(t *testing.T) {
	hub := NewHub()
	c := &fakeClient{}
	hub.Register("u1", c)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	local := NewRedisRelay(client, "events", hub)
	remote := NewRedisRelay(client, "events", NewHub())

	fromRemote, err := remote.encode("u1", []byte(`{"type":"notification"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, local.handle(string(fromRemote)))
	require.Len(t, c.messages, 1)
	assert.JSONEq(t, `{"type":"notification"}`, string(c.messages[0]))

	fromSelf, err := local.encode("u1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, local.handle(string(fromSelf)))

	assert.Equal(t, 0, local.handle("not json"))
}
