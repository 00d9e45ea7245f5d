package chanx

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedSendRecvDisconnect(t *testing.T) {
	tx, rx := Bounded[int](2)

	require.NoError(t, tx.Send(1))
	require.NoError(t, tx.Send(2))

	tx.Close()

	v, err := rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = rx.Recv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestTrySendFullAtCapacity(t *testing.T) {
	tx, rx := Bounded[int](2)
	defer rx.Close()

	require.NoError(t, tx.TrySend(1))
	require.NoError(t, tx.TrySend(2))

	err := tx.TrySend(3)
	assert.ErrorIs(t, err, ErrFull)
}

func TestTryRecvEmpty(t *testing.T) {
	tx, rx := Bounded[int](2)
	defer tx.Close()

	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSendDisconnectedReturnsValue(t *testing.T) {
	tx, rx := Bounded[string](1)
	rx.Close()

	err := tx.Send("hello")
	var disc *DisconnectedError[string]
	require.True(t, errors.As(err, &disc))
	assert.Equal(t, "hello", disc.Value)
}

func TestRecvWakesOnSend(t *testing.T) {
	tx, rx := Unbounded[int]()
	defer tx.Close()
	defer rx.Close()

	done := make(chan int, 1)
	go func() {
		v, err := rx.Recv()
		if err == nil {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tx.Send(42))

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("recv did not observe send")
	}
}

func TestRecvAsyncCancels(t *testing.T) {
	tx, rx := Unbounded[int]()
	defer tx.Close()
	defer rx.Close()

	ctxDone := make(chan struct{})
	close(ctxDone)

	_, err := rx.RecvAsync(ctxDone)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRecvAsyncWakesOnSend(t *testing.T) {
	tx, rx := Unbounded[int]()
	defer tx.Close()
	defer rx.Close()

	ctxDone := make(chan struct{})
	done := make(chan int, 1)
	go func() {
		v, err := rx.RecvAsync(ctxDone)
		if err == nil {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tx.Send(7))

	select {
	case v := <-done:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("RecvAsync did not observe send")
	}
}

func TestRecvAsyncDisconnectReturnsError(t *testing.T) {
	tx, rx := Unbounded[int]()
	defer rx.Close()

	ctxDone := make(chan struct{})
	tx.Close()

	_, err := rx.RecvAsync(ctxDone)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestCloneKeepsChannelAliveUntilAllDropped(t *testing.T) {
	tx, rx := Unbounded[int]()
	tx2 := tx.Clone()

	tx.Close()
	require.NoError(t, tx2.Send(7))

	tx2.Close()

	v, err := rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = rx.Recv()
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestBackoffWarnHookFires(t *testing.T) {
	orig := backoffWarn
	defer func() { backoffWarn = orig }()

	var fired bool
	SetBackoffWarnHook(func(int) { fired = true })
	CooperativeYieldWithBackoff(2000)
	assert.True(t, fired)
}
