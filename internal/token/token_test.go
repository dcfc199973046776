package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSignParseRoundTrip(t *testing.T) {
	tok, err := Sign("u@x.com", time.Hour, testSecret)
	require.NoError(t, err)

	claims, err := Parse(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u@x.com", claims.Sub)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	tok, err := Sign("u@x.com", time.Hour, testSecret)
	require.NoError(t, err)

	parts := strings.SplitN(tok, ".", 2)
	// Flip one character in the payload segment.
	mutated := []byte(parts[0])
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	_, err = Parse(string(mutated)+"."+parts[1], testSecret)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := Sign("u@x.com", time.Hour, testSecret)
	require.NoError(t, err)

	_, err = Parse(tok, "other-secret")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := Sign("u@x.com", -time.Minute, testSecret)
	require.NoError(t, err)

	_, err = Parse(tok, testSecret)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, tok := range []string{"", "nodot", "a.b.c!", "!!!.???"} {
		_, err := Parse(tok, testSecret)
		assert.Error(t, err, "token %q", tok)
	}
}
