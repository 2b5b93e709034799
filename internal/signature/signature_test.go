package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"id":1001,"email":"buyer@example.com"}`)
	sig := Sign(body, "topsecret")
	assert.True(t, Verify(body, sig, "topsecret"))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"id":1001}`)
	sig := Sign(body, "topsecret")
	assert.False(t, Verify([]byte(`{"id":1002}`), sig, "topsecret"))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":1001}`)
	sig := Sign(body, "topsecret")
	assert.False(t, Verify(body, sig, "othersecret"))
}

func TestVerifyFailsClosed(t *testing.T) {
	body := []byte(`{"id":1001}`)
	assert.False(t, Verify(body, "", "topsecret"), "missing signature must fail")
	assert.False(t, Verify(body, Sign(body, "topsecret"), ""), "missing secret must fail")
}
