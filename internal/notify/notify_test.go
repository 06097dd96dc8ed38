package notify

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/models"
)

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type": "register", "user_id": "u1"}`))
	require.NoError(t, err)
	assert.Equal(t, RegisterMessageType, msg.Type)
	assert.Equal(t, "u1", msg.UserID)

	_, err = parseRegisterMessage([]byte(`{"type": "register"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`{"user_id": "u1"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4242}
	reg.Register("u1", addr)

	client, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "u1", client.UserID)
	assert.Equal(t, addr, client.Addr)

	_, ok = reg.Lookup("u2")
	assert.False(t, ok)

	assert.Len(t, reg.Snapshot(), 1)

	reg.Remove("u1")
	_, ok = reg.Lookup("u1")
	assert.False(t, ok)

	// nil addr and empty user are ignored
	reg.Register("", addr)
	reg.Register("u3", nil)
	assert.Empty(t, reg.Snapshot())
}

func TestServerRegisterAndNotify(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, nil)

	go srv.Run()

	// wait for the listener to come up
	deadline := time.Now().Add(2 * time.Second)
	for srv.udpConn() == nil {
		if time.Now().After(deadline) {
			t.Fatal("UDP server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	client, err := net.DialUDP("udp", nil, srv.udpConn().LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte(`{"type": "register", "user_id": "u1"}`))
	require.NoError(t, err)

	// wait for the registration to land
	deadline = time.Now().Add(2 * time.Second)
	for {
		if _, ok := reg.Lookup("u1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("registration never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	due := time.Now().UTC().Add(24 * time.Hour)
	srv.NotifyDue(models.BorrowRecord{
		UserID:    "u1",
		BookID:    "b1",
		BookTitle: "1984",
		DueAt:     due,
	})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, err := client.Read(buf)
	require.NoError(t, err)

	var notice LoanDueMessage
	require.NoError(t, json.Unmarshal(buf[:n], &notice))
	assert.Equal(t, LoanDueMessageType, notice.Type)
	assert.Equal(t, "b1", notice.BookID)
	assert.Equal(t, "1984", notice.BookTitle)
	assert.WithinDuration(t, due, notice.DueAt, time.Second)
}

func TestNotifyDue_UnregisteredUserIsNoop(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, nil)

	// no Run: conn is nil, must not panic
	srv.NotifyDue(models.BorrowRecord{UserID: "u1", BookID: "b1"})
}
