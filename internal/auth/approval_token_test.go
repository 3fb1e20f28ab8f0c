package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPurpose = "approval-token"

func TestApprovalTokenRoundTrip(t *testing.T) {
	codec := NewApprovalTokenCodec("secret")

	token, err := codec.Issue(ApprovalPayload{ApprovalID: "a1", TicketID: "t1"}, testPurpose)
	require.NoError(t, err)

	payload, err := codec.Verify(token, testPurpose, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "a1", payload.ApprovalID)
	assert.Equal(t, "t1", payload.TicketID)
}

func TestApprovalTokenExpires(t *testing.T) {
	codec := NewApprovalTokenCodec("secret")

	token, err := codec.Issue(ApprovalPayload{ApprovalID: "a1", TicketID: "t1"}, testPurpose)
	require.NoError(t, err)

	_, err = codec.Verify(token, testPurpose, -time.Second)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestApprovalTokenPurposeMismatch(t *testing.T) {
	codec := NewApprovalTokenCodec("secret")

	token, err := codec.Issue(ApprovalPayload{ApprovalID: "a1", TicketID: "t1"}, "password-reset")
	require.NoError(t, err)

	_, err = codec.Verify(token, testPurpose, time.Hour)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestApprovalTokenWrongSecret(t *testing.T) {
	token, err := NewApprovalTokenCodec("secret-a").Issue(ApprovalPayload{ApprovalID: "a1", TicketID: "t1"}, testPurpose)
	require.NoError(t, err)

	_, err = NewApprovalTokenCodec("secret-b").Verify(token, testPurpose, time.Hour)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestApprovalTokenGarbage(t *testing.T) {
	codec := NewApprovalTokenCodec("secret")

	for _, tokenStr := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Verify(tokenStr, testPurpose, time.Hour)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestApprovalTokenRequiresPayload(t *testing.T) {
	codec := NewApprovalTokenCodec("secret")

	token, err := codec.Issue(ApprovalPayload{}, testPurpose)
	require.NoError(t, err)

	_, err = codec.Verify(token, testPurpose, time.Hour)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
