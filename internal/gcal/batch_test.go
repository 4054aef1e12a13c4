package gcal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_AddAssignsDistinctRequestIDs(t *testing.T) {
	t.Parallel()

	b := NewBatch("cal")
	a := b.Add(Operation{Kind: OpCreate}, nil)
	c := b.Add(Operation{Kind: OpCreate}, nil)

	assert.NotEqual(t, a, c)
	assert.Equal(t, "cal", b.CalendarID())
	require.Equal(t, 2, b.Len())
	assert.Equal(t, a, b.Entries()[0].RequestID)
	assert.Equal(t, c, b.Entries()[1].RequestID)
}

func TestBatch_DeliverRoutesToOwnCallback(t *testing.T) {
	t.Parallel()

	b := NewBatch("cal")

	var got []string

	first := b.Add(Operation{Kind: OpCreate}, func(id string, resp *Response, err error) {
		require.NoError(t, err)
		got = append(got, id+"="+resp.ID)
	})
	b.Add(Operation{Kind: OpPatch, EventID: "e"}, nil)
	b.Add(Operation{Kind: OpPatch, EventID: "f"}, func(_ string, resp *Response, err error) {
		assert.Nil(t, resp)
		got = append(got, err.Error())
	})

	b.Deliver(0, &Response{ID: "evt"}, nil)
	b.Deliver(1, &Response{ID: "ignored"}, nil)
	b.Deliver(2, nil, errors.New("boom"))

	assert.Equal(t, []string{first + "=evt", "boom"}, got)
}
