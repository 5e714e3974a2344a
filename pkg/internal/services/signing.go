package services

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"code.superseriousbusiness.org/httpsig"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
)

// AllowedSignatureAlgorithms matches the HTTP signature algorithm families we
// accept on inbound requests.
var AllowedSignatureAlgorithms = regexp.MustCompile(`^((dsa|rsa|ecdsa)-(sha256|sha384|sha512)|ed25519-sha512|hs2019)$`)

// SignRequest signs an outbound POST, covering the request target, host, date
// and body digest, which is what the inbox gate on the other side demands.
func SignRequest(req *http.Request, privateKey crypto.PrivateKey, keyID string, body []byte) error {
	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		[]string{httpsig.RequestTarget, "host", "date", "digest"},
		httpsig.Signature,
		0,
	)
	if err != nil {
		return fmt.Errorf("unable to create signer: %w", err)
	}

	return signer.SignRequest(privateKey, keyID, req, body)
}

// SignGetRequest signs a bodyless GET the same way, without a digest.
func SignGetRequest(req *http.Request, privateKey crypto.PrivateKey, keyID string) error {
	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		[]string{httpsig.RequestTarget, "host", "date"},
		httpsig.Signature,
		0,
	)
	if err != nil {
		return fmt.Errorf("unable to create signer: %w", err)
	}

	return signer.SignRequest(privateKey, keyID, req, nil)
}

// VerifySignature replays the cryptographic check of an already-gated inbox
// submission against the claimed actor's public key.
func VerifySignature(meta models.SignatureMetadata, keyPem string, body []byte) error {
	req, err := http.NewRequest(meta.Method, meta.Path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("unable to rebuild request: %w", err)
	}
	for name, value := range meta.Headers {
		if strings.EqualFold(name, "Host") {
			req.Host = value
			continue
		}
		req.Header.Set(name, value)
	}

	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return fmt.Errorf("unable to create verifier: %w", err)
	}

	publicKey, err := ParsePublicKey(keyPem)
	if err != nil {
		return err
	}

	switch publicKey.(type) {
	case ed25519.PublicKey:
		return verifier.Verify(publicKey, httpsig.ED25519)
	default:
		return verifier.Verify(publicKey, httpsig.RSA_SHA256)
	}
}

// ParseSignatureHeader splits a Signature header of the form
// keyId="…",algorithm="…",headers="…",signature="…" into its parts.
func ParseSignatureHeader(header string) (models.SignatureMetadata, []string, error) {
	var meta models.SignatureMetadata
	var signedHeaders []string
	var hasSignature bool

	for _, part := range splitSignatureParts(header) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return meta, nil, fmt.Errorf("malformed signature segment: %s", part)
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "keyid":
			meta.KeyID = value
		case "algorithm":
			meta.Algorithm = strings.ToLower(value)
		case "headers":
			signedHeaders = strings.Fields(strings.ToLower(value))
		case "signature":
			hasSignature = value != ""
		}
	}

	if meta.KeyID == "" || !hasSignature {
		return meta, nil, fmt.Errorf("signature header is missing keyId or signature")
	}
	if meta.Algorithm == "" {
		meta.Algorithm = "hs2019"
	}

	return meta, signedHeaders, nil
}

// splitSignatureParts splits on commas that are outside quoted values, since
// base64 signatures may not contain commas but header lists contain spaces.
func splitSignatureParts(header string) []string {
	var parts []string
	var sb strings.Builder
	quoted := false
	for _, r := range header {
		switch {
		case r == '"':
			quoted = !quoted
			sb.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, strings.TrimSpace(sb.String()))
	}
	return parts
}

// ParsePrivateKey decodes a PEM encoded private key, accepting both PKCS#1
// and PKCS#8 encodings.
func ParsePrivateKey(pemString string) (crypto.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemString))
	if block == nil {
		return nil, fmt.Errorf("unable to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}
	return key, nil
}

// ParsePublicKey decodes a PEM encoded public key.
func ParsePublicKey(pemString string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemString))
	if block == nil {
		return nil, fmt.Errorf("unable to decode PEM block")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse public key: %w", err)
	}
	return key, nil
}

// GenerateKeypair creates the RSA keypair of a local account.
func GenerateKeypair() (string, string, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}

	privatePem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicDer, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", "", err
	}
	publicPem := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDer,
	})

	return string(privatePem), string(publicPem), nil
}
