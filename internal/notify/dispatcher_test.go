package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	kind  Kind
	err   error
	panic bool
	log   *[]Kind
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	*r.log = append(*r.log, r.kind)
	if r.panic {
		panic("boom")
	}
	return r.err
}

func channel(kind Kind, err error, log *[]Kind) Channel {
	return Channel{Kind: kind, Sender: &recordingSender{kind: kind, err: err, log: log}}
}

func TestDispatch_PrimarySucceeds(t *testing.T) {
	var calls []Kind
	d := NewDispatcher([]Channel{
		channel(ChannelGraph, nil, &calls),
		channel(ChannelSMTP, nil, &calls),
	}, nil)

	out := d.Dispatch(context.Background(), EmailMessage{To: "ops@example.com"})

	assert.True(t, out.Sent)
	assert.Equal(t, ChannelGraph, out.Channel)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, []Kind{ChannelGraph}, calls)
}

func TestDispatch_FallsBackToSMTPExactlyOnce(t *testing.T) {
	var calls []Kind
	d := NewDispatcher([]Channel{
		channel(ChannelGraph, &RejectedError{Channel: ChannelGraph, StatusCode: 500}, &calls),
		channel(ChannelSMTP, nil, &calls),
	}, nil)

	out := d.Dispatch(context.Background(), EmailMessage{To: "ops@example.com"})

	require.True(t, out.Sent)
	assert.Equal(t, ChannelSMTP, out.Channel)
	assert.Equal(t, []Kind{ChannelGraph, ChannelSMTP}, calls)
	require.Len(t, out.Attempts, 2)
	assert.False(t, out.Attempts[0].Success)
	assert.Equal(t, ErrorKindRejected, out.Attempts[0].ErrorKind)
	assert.True(t, out.Attempts[1].Success)
}

func TestDispatch_AllFail(t *testing.T) {
	var calls []Kind
	d := NewDispatcher([]Channel{
		channel(ChannelGraph, errors.New("dial tcp: timeout"), &calls),
		channel(ChannelSMTP, errors.New("connection refused"), &calls),
	}, nil)

	out := d.Dispatch(context.Background(), EmailMessage{To: "ops@example.com"})

	assert.False(t, out.Sent)
	assert.Equal(t, ChannelNone, out.Channel)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, []Kind{ChannelGraph, ChannelSMTP}, calls)
	for _, a := range out.Attempts {
		assert.Equal(t, ErrorKindTransport, a.ErrorKind)
		assert.NotEmpty(t, a.Error)
	}
}

func TestDispatch_NoChannels(t *testing.T) {
	d := NewDispatcher(nil, nil)

	out := d.Dispatch(context.Background(), EmailMessage{To: "ops@example.com"})

	assert.False(t, out.Sent)
	assert.Equal(t, StateNotAttempted, out.State)
	assert.Empty(t, out.Attempts)
}

func TestDispatch_NilDispatcher(t *testing.T) {
	var d *Dispatcher
	out := d.Dispatch(context.Background(), EmailMessage{})
	assert.False(t, out.Sent)
	assert.Nil(t, d.Channels())
}

func TestDispatch_PanickingSenderFallsBack(t *testing.T) {
	var calls []Kind
	d := NewDispatcher([]Channel{
		{Kind: ChannelGraph, Sender: &recordingSender{kind: ChannelGraph, panic: true, log: &calls}},
		channel(ChannelSMTP, nil, &calls),
	}, nil)

	out := d.Dispatch(context.Background(), EmailMessage{To: "ops@example.com"})

	assert.True(t, out.Sent)
	assert.Equal(t, ChannelSMTP, out.Channel)
	assert.Contains(t, out.Attempts[0].Error, "panic")
}

func TestNewDispatcher_SkipsNilSenders(t *testing.T) {
	var calls []Kind
	d := NewDispatcher([]Channel{
		{Kind: ChannelGraph},
		channel(ChannelSMTP, nil, &calls),
	}, nil)

	assert.Equal(t, []Kind{ChannelSMTP}, d.Channels())
}
