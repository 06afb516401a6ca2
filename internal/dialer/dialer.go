// Package dialer places outbound calls through the Twilio REST API. Calls
// are answered by the gateway's own /incoming-call endpoint, which resolves
// the opening line and attaches the media stream.
package dialer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dialer places rate-limited outbound calls. The automation service triggers
// dial batches from a lead sheet; Twilio rejects bursts, so dials are paced.
type Dialer struct {
	client            *twilio.RestClient
	fromNumber        string
	voiceURL          string
	statusCallbackURL string
	limiter           *rate.Limiter
}

// NewDialer creates a dialer from gateway configuration. Returns nil when
// Twilio credentials are not configured.
func NewDialer(cfg *config.GatewayConfig) *Dialer {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		logger.Base().Warn("twilio credentials not configured, outbound dialing disabled")
		return nil
	}

	perMinute := cfg.DialsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	statusCallback := cfg.StatusCallbackURL
	if statusCallback == "" {
		statusCallback = fmt.Sprintf("https://%s/twilio-status-callback", cfg.PublicHost)
	}

	return &Dialer{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		fromNumber:        cfg.TwilioFromNumber,
		voiceURL:          fmt.Sprintf("https://%s/incoming-call", cfg.PublicHost),
		statusCallbackURL: statusCallback,
		limiter:           rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// PlaceCall dials one number and returns the Twilio call SID. The row tag is
// threaded through the status callback so the automation service can update
// its sheet.
func (d *Dialer) PlaceCall(ctx context.Context, toNumber, row string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("dial pacing interrupted: %w", err)
	}

	callback := d.statusCallbackURL
	if row != "" {
		callback = fmt.Sprintf("%s?row=%s", d.statusCallbackURL, url.QueryEscape(row))
	}

	params := &api.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.fromNumber)
	params.SetUrl(d.voiceURL)
	params.SetStatusCallback(callback)
	params.SetStatusCallbackMethod("POST")

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("failed to create call to %s: %w", toNumber, err)
	}

	callSID := ""
	if resp.Sid != nil {
		callSID = *resp.Sid
	}
	logger.Base().Info("outbound call initiated",
		zap.String("to", toNumber), zap.String("call_sid", callSID), zap.String("row", row))
	return callSID, nil
}
