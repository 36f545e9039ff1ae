package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	eventPath         = "/events/:" + providerPathParamKey
	itemIDLogFieldKey = "itemId"
)

// EventIngester is the idempotent intake boundary the event endpoint hands events to
type EventIngester interface {
	Ingest(ctx context.Context, event *recovery.InboundEvent) (item *data.RecoveryItem, duplicate bool, err error)
}

// EventController receives provider events that open recovery cases
type EventController struct {
	Intake EventIngester
}

// NewEventController creates a new instance of the controller receiving provider events
func NewEventController(intake EventIngester) *EventController {
	return &EventController{Intake: intake}
}

// Post Receives a provider-tagged event; redeliveries of a seen event are acknowledged without a new case
func (eventController *EventController) Post(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	logger := hlog.FromRequest(r)
	if !isJSONRequest(r) {
		writeUnsupportedMediaType(w)
		return
	}
	event := &recovery.InboundEvent{}
	if err := json.NewDecoder(r.Body).Decode(event); err != nil {
		logger.Error().Err(err).Msg("error parsing event body")
		writeBadRequest(w)
		return
	}
	// The path segment is authoritative for the provider
	event.Provider = params.ByName(providerPathParamKey)
	if len(event.Tenant) == 0 || len(event.ExternalID) == 0 {
		writeBadRequest(w)
		return
	}
	item, duplicate, err := eventController.Intake.Ingest(r.Context(), event)
	switch {
	case err == data.ErrInsufficientInformationForCreating:
		logger.Error().Err(err).Str("tenant", event.Tenant).Msg("event rejected as unprocessable")
		writeStatus(w, http.StatusBadRequest, err)
	case err != nil:
		logger.Error().Err(err).Str("tenant", event.Tenant).Msg("error ingesting event")
		writeErr(w, err)
	case duplicate:
		logger.Info().Str("tenant", event.Tenant).Str("externalId", event.ExternalID).Msg("duplicate event acknowledged")
		writeJSON(w, map[string]bool{"duplicate": true})
	default:
		logger.Info().Str(itemIDLogFieldKey, item.ID.String()).Str("tenant", event.Tenant).Msg("recovery case opened")
		w.Header().Add(headerLocation, "/queue/"+item.Tenant+"/"+item.ID.String())
		writeStatus(w, http.StatusCreated, nil)
	}
}

// GetPath returns the endpoint's path
func (eventController *EventController) GetPath() string {
	return eventPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (eventController *EventController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, eventPath, providerPathParamKey)
}
