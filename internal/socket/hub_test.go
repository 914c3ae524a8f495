package socket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, authorize RoomAuthorizer) *Hub {
	t.Helper()
	hub := NewHub(authorize)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub, email string) *Client {
	c := NewClient(hub, email, nil)
	hub.Register(c)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestParseRoom(t *testing.T) {
	kind, id, ok := ParseRoom("group:g1")
	assert.True(t, ok)
	assert.Equal(t, "group", kind)
	assert.Equal(t, "g1", id)

	_, _, ok = ParseRoom("user:alice")
	assert.False(t, ok)
	_, _, ok = ParseRoom("order:")
	assert.False(t, ok)
}

func TestJoinRequiresAuthorization(t *testing.T) {
	hub := startHub(t, func(ctx context.Context, email, room string) bool {
		return email == "alice@example.com" && room == "group:g1"
	})
	alice := newTestClient(hub, "alice@example.com")
	mallory := newTestClient(hub, "mallory@example.com")

	alice.handleMessage([]byte(`{"action":"join","room":"group:g1"}`))
	mallory.handleMessage([]byte(`{"action":"join","room":"group:g1"}`))

	ack := receive(t, alice)
	assert.Equal(t, MessageAck, ack.Type)
	assert.Equal(t, "joined", ack.Payload["action"])

	denied := receive(t, mallory)
	assert.Equal(t, MessageError, denied.Type)
	assert.Equal(t, "forbidden", denied.Payload["error"])

	assert.Equal(t, 1, hub.GetRoomClients("group:g1"))
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := startHub(t, nil)
	alice := newTestClient(hub, "alice@example.com")
	bob := newTestClient(hub, "bob@example.com")
	hub.JoinRoom(alice, OrderRoom("o1"))

	NewBroadcaster(hub).BroadcastCardRemoved("o1", "c1", "")

	msg := receive(t, alice)
	assert.Equal(t, MessageCardRemoved, msg.Type)
	assert.Equal(t, "c1", msg.Payload["card_id"])

	select {
	case <-bob.Send:
		t.Fatal("bob is not in the room")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub := startHub(t, nil)
	alice := newTestClient(hub, "alice@example.com")
	bob := newTestClient(hub, "bob@example.com")
	hub.JoinRoom(alice, GroupRoom("g1"))
	hub.JoinRoom(bob, GroupRoom("g1"))

	NewBroadcaster(hub).BroadcastMemberJoined("g1", map[string]interface{}{"email": "bob@example.com"}, "bob@example.com")

	assert.Equal(t, MessageMemberJoined, receive(t, alice).Type)
	select {
	case <-bob.Send:
		t.Fatal("sender should be excluded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterLeavesRooms(t *testing.T) {
	hub := startHub(t, nil)
	alice := newTestClient(hub, "alice@example.com")
	hub.JoinRoom(alice, GroupRoom("g1"))

	hub.Unregister(alice)

	assert.Eventually(t, func() bool {
		return hub.GetConnectedClientsCount() == 0 && hub.GetRoomClients(GroupRoom("g1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownActionRepliesError(t *testing.T) {
	hub := startHub(t, nil)
	c := newTestClient(hub, "alice@example.com")

	c.handleMessage([]byte(`{"action":"typing","room":"group:g1"}`))

	assert.Equal(t, MessageError, receive(t, c).Type)
}
