package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/queue"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	inboxBodyLimit   = 64 * 1024
	signatureMaxSkew = 5 * time.Minute
)

var requiredSignedHeaders = []string{"(request-target)", "digest", "host", "date"}

// submitInbox is swappable so the gate can be tested without a live redis.
var submitInbox = func(data models.InboxJobData) error {
	return queue.Inbox.Enqueue(context.Background(), data)
}

// postInbox is the inbound gate. It runs cheap, ordered checks and queues the
// expensive verification: a request that passes here is accepted with 202 and
// judged later by the inbox worker.
func postInbox(c *fiber.Ctx) error {
	if !strings.EqualFold(c.Hostname(), viper.GetString("federation.domain")) {
		return fiber.NewError(fiber.StatusBadRequest, "request host does not match this instance")
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body is empty")
	}
	if len(body) > inboxBodyLimit {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "request body exceeds the inbox limit")
	}

	meta, signedHeaders, err := services.ParseSignatureHeader(c.Get("Signature"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid signature header")
	}
	for _, required := range requiredSignedHeaders {
		if !lo.Contains(signedHeaders, required) {
			return fiber.NewError(fiber.StatusUnauthorized, "signature does not cover "+required)
		}
	}
	if !services.AllowedSignatureAlgorithms.MatchString(meta.Algorithm) {
		return fiber.NewError(fiber.StatusUnauthorized, "unsupported signature algorithm")
	}

	// c.Get folds repeated header lines down to the first, so count the raw
	// occurrences before reading the value.
	digests := c.Request().Header.PeekAll("Digest")
	if len(digests) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "exactly one digest header is required")
	}
	digest := string(digests[0])
	if digest == "" || strings.Contains(digest, ",") {
		return fiber.NewError(fiber.StatusUnauthorized, "exactly one digest header is required")
	}
	prefix, value, found := strings.Cut(digest, "=")
	if !found || !strings.EqualFold(prefix, "SHA-256") {
		return fiber.NewError(fiber.StatusUnauthorized, "digest must be SHA-256")
	}
	sum := sha256.Sum256(body)
	expected := base64.StdEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(value)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "digest does not match the request body")
	}

	sent, err := http.ParseTime(c.Get("Date"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "date header is missing or malformed")
	}
	if skew := time.Since(sent); skew > signatureMaxSkew || skew < -signatureMaxSkew {
		return fiber.NewError(fiber.StatusUnauthorized, "signature is too old")
	}

	meta.Method = c.Method()
	meta.Path = c.Path()
	meta.Headers = map[string]string{"host": c.Hostname(), "signature": c.Get("Signature")}
	for _, name := range signedHeaders {
		if name == "(request-target)" || name == "host" {
			continue
		}
		meta.Headers[name] = c.Get(name)
	}

	if err := submitInbox(models.InboxJobData{
		Signature: meta,
		Body:      body,
	}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "unable to queue the activity")
	}

	return c.SendStatus(fiber.StatusAccepted)
}
