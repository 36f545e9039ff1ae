package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/wire"
	"github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// OutboundInjector provides the production gateway and drafter implementations
var OutboundInjector = wire.NewSet(NewMessageGateway, NewResponseDrafter)

const (
	headerContentType          = "Content-Type"
	jsonContentTypeHeaderValue = "application/json"
)

type outboundMessage struct {
	Tenant     string `json:"tenant"`
	ItemID     string `json:"itemId"`
	Provider   string `json:"provider"`
	ContactRef string `json:"contactRef"`
	Content    string `json:"content"`
}

// httpMessageGateway dispatches outreach messages to the configured webhook
type httpMessageGateway struct {
	endpoint string
	client   *http.Client
}

func (gateway *httpMessageGateway) Send(ctx context.Context, item *data.RecoveryItem, content string) error {
	payload, err := json.Marshal(&outboundMessage{
		Tenant:     item.Tenant,
		ItemID:     item.ID.String(),
		Provider:   item.Provider,
		ContactRef: item.ContactRef,
		Content:    content,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set(headerContentType, jsonContentTypeHeaderValue)
	resp, err := gateway.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("message dispatch rejected with status %d", resp.StatusCode)
	}
	return nil
}

// logMessageGateway stands in when no gateway URL is configured; sends succeed
// without leaving the process
type logMessageGateway struct {
}

func (gateway *logMessageGateway) Send(ctx context.Context, item *data.RecoveryItem, content string) error {
	log.Info().Str("tenant", item.Tenant).Str("itemId", item.ID.String()).
		Str("contactRef", item.ContactRef).Str("content", content).
		Msg("no sms gateway configured; message logged only")
	return nil
}

// NewMessageGateway creates the message gateway the outreach service sends
// through, picking the HTTP implementation when a gateway URL is configured
func NewMessageGateway(outreachConfig config.OutreachConfig) MessageGateway {
	if outreachConfig.GetSMSGatewayURL() == nil {
		return &logMessageGateway{}
	}
	return &httpMessageGateway{
		endpoint: outreachConfig.GetSMSGatewayURL().String(),
		client:   &http.Client{Timeout: outreachConfig.GetOutreachDispatchTimeout()},
	}
}

type draftRequest struct {
	Tenant           string   `json:"tenant"`
	ItemID           string   `json:"itemId"`
	Provider         string   `json:"provider"`
	ContactRef       string   `json:"contactRef"`
	PriorContentRefs []string `json:"priorContentRefs"`
}

type draftResponse struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// httpResponseDrafter asks the configured drafting service for outreach content
type httpResponseDrafter struct {
	endpoint string
	client   *http.Client
}

func (drafter *httpResponseDrafter) Draft(ctx context.Context, item *data.RecoveryItem, priorAttempts []*data.RecoveryAttempt) (string, float64, error) {
	priorContentRefs := make([]string, 0, len(priorAttempts))
	for _, attempt := range priorAttempts {
		if len(attempt.ContentRef) > 0 {
			priorContentRefs = append(priorContentRefs, attempt.ContentRef)
		}
	}
	payload, err := json.Marshal(&draftRequest{
		Tenant:           item.Tenant,
		ItemID:           item.ID.String(),
		Provider:         item.Provider,
		ContactRef:       item.ContactRef,
		PriorContentRefs: priorContentRefs,
	})
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, drafter.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set(headerContentType, jsonContentTypeHeaderValue)
	resp, err := drafter.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", 0, fmt.Errorf("draft request rejected with status %d", resp.StatusCode)
	}
	draft := &draftResponse{}
	if err = json.NewDecoder(resp.Body).Decode(draft); err != nil {
		return "", 0, err
	}
	return draft.Content, draft.Confidence, nil
}

// templateDrafter produces canned follow-up content when no drafting service
// is configured. Confidence drops with every attempt already made so repeat
// outreach gets handed to a human sooner.
type templateDrafter struct {
}

func (drafter *templateDrafter) Draft(ctx context.Context, item *data.RecoveryItem, priorAttempts []*data.RecoveryAttempt) (string, float64, error) {
	content := fmt.Sprintf("Hi! We missed your message and want to pick things back up. Reply here and we will take care of your request right away. [case %s]", item.ID.String())
	confidence := 0.9 - 0.1*float64(len(priorAttempts))
	if confidence < 0.1 {
		confidence = 0.1
	}
	return content, confidence, nil
}

// NewResponseDrafter creates the drafter for outreach content, picking the
// HTTP implementation when a drafter URL is configured
func NewResponseDrafter(outreachConfig config.OutreachConfig) ResponseDrafter {
	if outreachConfig.GetAIDrafterURL() == nil {
		return &templateDrafter{}
	}
	return &httpResponseDrafter{
		endpoint: outreachConfig.GetAIDrafterURL().String(),
		client:   &http.Client{Timeout: outreachConfig.GetOutreachDispatchTimeout()},
	}
}
