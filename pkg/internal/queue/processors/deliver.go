package processors

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var deliverClient = &http.Client{Timeout: 30 * time.Second}

// ClassifyDeliveryStatus maps an HTTP status to a job outcome. Client errors
// are terminal: the destination understood the request and rejected it, so
// retrying the same payload cannot succeed. Server errors are retryable.
func ClassifyDeliveryStatus(status int) (string, bool) {
	switch {
	case status >= 200 && status < 300:
		return "success", false
	case status >= 400 && status < 500:
		return fmt.Sprintf("permanently failed: %d", status), false
	default:
		return "", true
	}
}

// ProcessDeliver performs one outbound delivery: policy checks, signing, the
// POST itself, and the instance health bookkeeping of its result.
func ProcessDeliver(ctx context.Context, payload jsoniter.RawMessage) (string, error) {
	var data models.DeliverJobData
	if err := jsoniter.Unmarshal(payload, &data); err != nil {
		return "skip: undecodable job payload", nil
	}

	parsed, err := url.Parse(data.InboxURI)
	if err != nil || parsed.Host == "" {
		return fmt.Sprintf("skip: invalid inbox uri %s", data.InboxURI), nil
	}
	host := parsed.Host

	if services.IsHostBlocked(host) {
		return "skip (blocked)", nil
	}
	if suspended, err := services.IsInstanceSuspended(host); err == nil && suspended {
		return "skip (suspended)", nil
	}

	var account models.Account
	if err := database.C.Where("id = ?", data.AccountID).First(&account).Error; err != nil {
		return fmt.Sprintf("skip: sender account %d is gone", data.AccountID), nil
	}
	if account.PrivateKeyPem == nil {
		return fmt.Sprintf("skip: sender %s has no signing key", account.Acct()), nil
	}
	privateKey, err := services.ParsePrivateKey(*account.PrivateKeyPem)
	if err != nil {
		return fmt.Sprintf("skip: unparseable signing key of %s", account.Acct()), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, data.InboxURI, bytes.NewReader(data.Activity))
	if err != nil {
		return fmt.Sprintf("skip: unable to build request: %v", err), nil
	}
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("User-Agent", "fernwood/"+viper.GetString("federation.domain"))

	keyID := account.Address() + "#main-key"
	if err := services.SignRequest(req, privateKey, keyID, data.Activity); err != nil {
		return "", fmt.Errorf("unable to sign delivery: %w", err)
	}

	resp, err := deliverClient.Do(req)
	if err != nil {
		services.UpdateInstanceStatus(host, nil, false)
		return "", fmt.Errorf("unable to reach %s: %w", host, err)
	}
	defer resp.Body.Close()

	outcome, retry := ClassifyDeliveryStatus(resp.StatusCode)
	services.UpdateInstanceStatus(host, &resp.StatusCode, !retry && outcome == "success")

	if retry {
		return "", fmt.Errorf("remote %s returned status %d", host, resp.StatusCode)
	}
	if outcome != "success" {
		log.Debug().
			Str("inbox", data.InboxURI).
			Int("status", resp.StatusCode).
			Msg("Delivery rejected by remote...")
	}
	return outcome, nil
}
