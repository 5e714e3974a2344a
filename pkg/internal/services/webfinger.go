package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

type WebFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

type WebFingerDocument struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases"`
	Links   []WebFingerLink `json:"links"`
}

// WebFingerSelf resolves account@host to the canonical identifier URI of the
// actor via the remote server's WebFinger endpoint.
func WebFingerSelf(acct string) (string, error) {
	acct = strings.TrimPrefix(strings.ToLower(acct), "acct:")
	_, host, found := strings.Cut(acct, "@")
	if !found {
		return "", fmt.Errorf("invalid acct: %s", acct)
	}
	if IsHostBlocked(host) {
		return "", fmt.Errorf("%w: %s", ErrHostBlocked, host)
	}

	endpoint := fmt.Sprintf(
		"https://%s/.well-known/webfinger?resource=%s",
		host,
		url.QueryEscape("acct:"+acct),
	)

	var document WebFingerDocument
	err := retry.Do(func() error {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(endpoint)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("webfinger returned status %d", resp.StatusCode)
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, resolveBodyLimit))
		if err != nil {
			return err
		}
		return jsoniter.Unmarshal(raw, &document)
	}, retry.Attempts(3), retry.Delay(500*time.Millisecond))
	if err != nil {
		return "", fmt.Errorf("unable to webfinger %s: %w", acct, err)
	}

	self, ok := lo.Find(document.Links, func(link WebFingerLink) bool {
		return strings.EqualFold(link.Rel, "self") && link.Href != ""
	})
	if !ok {
		return "", fmt.Errorf("webfinger response of %s has no self link", acct)
	}

	return self.Href, nil
}
