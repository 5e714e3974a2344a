package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestRequest(t *testing.T) (*http.Request, string, []byte) {
	t.Helper()

	privatePem, publicPem, err := GenerateKeypair()
	require.NoError(t, err)
	privateKey, err := ParsePrivateKey(privatePem)
	require.NoError(t, err)

	body := []byte(`{"type":"Create","actor":"https://remote.test/users/alice"}`)
	req, err := http.NewRequest(http.MethodPost, "https://local.test/inbox", nil)
	require.NoError(t, err)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	keyID := "https://remote.test/users/alice#main-key"
	require.NoError(t, SignRequest(req, privateKey, keyID, body))

	return req, publicPem, body
}

func metadataOf(req *http.Request) models.SignatureMetadata {
	return models.SignatureMetadata{
		KeyID:     "https://remote.test/users/alice#main-key",
		Algorithm: "rsa-sha256",
		Method:    req.Method,
		Path:      req.URL.Path,
		Headers: map[string]string{
			"host":      req.Host,
			"date":      req.Header.Get("Date"),
			"digest":    req.Header.Get("Digest"),
			"signature": req.Header.Get("Signature"),
		},
	}
}

func TestSignAndVerifyRoundtrip(t *testing.T) {
	req, publicPem, body := signedTestRequest(t)

	assert.NotEmpty(t, req.Header.Get("Signature"))
	assert.NotEmpty(t, req.Header.Get("Digest"))

	assert.NoError(t, VerifySignature(metadataOf(req), publicPem, body))
}

func TestVerifyRejectsTamperedHeaders(t *testing.T) {
	req, publicPem, body := signedTestRequest(t)

	meta := metadataOf(req)
	meta.Headers["date"] = time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)

	assert.Error(t, VerifySignature(meta, publicPem, body))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	req, _, body := signedTestRequest(t)
	_, otherPublicPem, err := GenerateKeypair()
	require.NoError(t, err)

	assert.Error(t, VerifySignature(metadataOf(req), otherPublicPem, body))
}

func TestParseSignatureHeader(t *testing.T) {
	header := `keyId="https://remote.test/users/alice#main-key",algorithm="RSA-SHA256",headers="(request-target) host date digest",signature="c2lnbmF0dXJl"`

	meta, signedHeaders, err := ParseSignatureHeader(header)
	require.NoError(t, err)

	assert.Equal(t, "https://remote.test/users/alice#main-key", meta.KeyID)
	assert.Equal(t, "rsa-sha256", meta.Algorithm)
	assert.Equal(t, []string{"(request-target)", "host", "date", "digest"}, signedHeaders)
}

func TestParseSignatureHeaderDefaultsAlgorithm(t *testing.T) {
	header := `keyId="https://remote.test/users/alice#main-key",headers="(request-target) host date",signature="c2ln"`

	meta, _, err := ParseSignatureHeader(header)
	require.NoError(t, err)
	assert.Equal(t, "hs2019", meta.Algorithm)
}

func TestParseSignatureHeaderMissingParts(t *testing.T) {
	_, _, err := ParseSignatureHeader(`algorithm="rsa-sha256"`)
	assert.Error(t, err)

	_, _, err = ParseSignatureHeader("")
	assert.Error(t, err)
}

func TestAllowedSignatureAlgorithms(t *testing.T) {
	for _, allowed := range []string{"rsa-sha256", "ecdsa-sha512", "dsa-sha384", "ed25519-sha512", "hs2019"} {
		assert.True(t, AllowedSignatureAlgorithms.MatchString(allowed), allowed)
	}
	for _, forbidden := range []string{"rsa-md5", "rsa-sha1", "hmac-sha256", "", "sha256"} {
		assert.False(t, AllowedSignatureAlgorithms.MatchString(forbidden), forbidden)
	}
}
