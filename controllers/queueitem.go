package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	queueItemPath   = "/queue/:" + tenantIDPathParamKey + "/:" + itemIDPathParamKey
	itemProcessPath = queueItemPath + "/process"
	itemReplyPath   = queueItemPath + "/reply"
)

// ItemProcessor triggers one locked processing pass for a single case
type ItemProcessor interface {
	ProcessItem(ctx context.Context, tenant, itemID string) error
}

// ReplyHandler interprets an inbound customer reply for a case
type ReplyHandler interface {
	HandleReply(ctx context.Context, tenant, itemID string, reply recovery.ReplySignal) (*data.RecoveryItem, error)
}

// AttemptModel is the representation of one outreach try in the item view
type AttemptModel struct {
	ID                string    `json:"id"`
	Method            string    `json:"method"`
	ContentRef        string    `json:"contentRef"`
	Confidence        float64   `json:"confidence"`
	Success           bool      `json:"success"`
	CustomerEngaged   bool      `json:"customerEngaged"`
	ComplianceBlocked bool      `json:"complianceBlocked"`
	AttemptedAt       time.Time `json:"attemptedAt"`
}

// QueueItemModel is the representation of a recovery case and its attempt log
type QueueItemModel struct {
	ID                 string         `json:"id"`
	Tenant             string         `json:"tenant"`
	Provider           string         `json:"provider"`
	ExternalID         string         `json:"externalId"`
	ContactRef         string         `json:"contactRef"`
	Status             string         `json:"status"`
	StatusChangedAt    time.Time      `json:"statusChangedAt"`
	SLADeadline        time.Time      `json:"slaDeadline"`
	EscalationDeadline time.Time      `json:"escalationDeadline"`
	RetryCount         uint           `json:"retryCount"`
	MaxRetries         uint           `json:"maxRetries"`
	NextAttemptAt      time.Time      `json:"nextAttemptAt"`
	OptedOut           bool           `json:"optedOut"`
	EscalationReason   string         `json:"escalationReason,omitempty"`
	Attempts           []AttemptModel `json:"attempts"`
}

func getQueueItemModel(item *data.RecoveryItem, attempts []*data.RecoveryAttempt) *QueueItemModel {
	model := &QueueItemModel{
		ID:                 item.ID.String(),
		Tenant:             item.Tenant,
		Provider:           item.Provider,
		ExternalID:         item.ExternalID,
		ContactRef:         item.ContactRef,
		Status:             item.Status.String(),
		StatusChangedAt:    item.StatusChangedAt,
		SLADeadline:        item.SLADeadline,
		EscalationDeadline: item.EscalationDeadline,
		RetryCount:         item.RetryCount,
		MaxRetries:         item.MaxRetries,
		NextAttemptAt:      item.NextAttemptAt,
		OptedOut:           item.OptedOut,
		EscalationReason:   item.EscalationReason,
		Attempts:           make([]AttemptModel, 0, len(attempts)),
	}
	for _, attempt := range attempts {
		model.Attempts = append(model.Attempts, AttemptModel{
			ID:                attempt.ID.String(),
			Method:            attempt.Method,
			ContentRef:        attempt.ContentRef,
			Confidence:        attempt.Confidence,
			Success:           attempt.Success,
			CustomerEngaged:   attempt.CustomerEngaged,
			ComplianceBlocked: attempt.ComplianceBlocked,
			AttemptedAt:       attempt.AttemptedAt,
		})
	}
	return model
}

// QueueItemController is the controller for a single recovery case
type QueueItemController struct {
	ItemRepo    storage.RecoveryItemRepository
	AttemptRepo storage.AttemptRepository
}

// NewQueueItemController creates a new instance of the single case controller
func NewQueueItemController(itemRepo storage.RecoveryItemRepository, attemptRepo storage.AttemptRepository) *QueueItemController {
	return &QueueItemController{ItemRepo: itemRepo, AttemptRepo: attemptRepo}
}

// Get is the GET /queue/:tenantId/:itemId endpoint controller
func (itemController *QueueItemController) Get(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	logger := hlog.FromRequest(r)
	tenant := params.ByName(tenantIDPathParamKey)
	itemID := params.ByName(itemIDPathParamKey)
	item, err := itemController.ItemRepo.Get(tenant, itemID)
	if err != nil {
		logger.Error().Err(err).Msg("no item found: " + itemID)
		writeNotFound(w)
		return
	}
	attempts, err := itemController.AttemptRepo.GetByItem(item.ID.String())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, getQueueItemModel(item, attempts))
}

// GetPath returns the endpoint's path
func (itemController *QueueItemController) GetPath() string {
	return queueItemPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (itemController *QueueItemController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, queueItemPath, tenantIDPathParamKey, itemIDPathParamKey)
}

// ProcessController triggers an on-demand processing pass for a case
type ProcessController struct {
	Processor ItemProcessor
}

// NewProcessController creates a new instance of the on-demand processing controller
func NewProcessController(processor ItemProcessor) *ProcessController {
	return &ProcessController{Processor: processor}
}

// Post is the POST /queue/:tenantId/:itemId/process endpoint controller
func (processController *ProcessController) Post(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	logger := hlog.FromRequest(r)
	tenant := params.ByName(tenantIDPathParamKey)
	itemID := params.ByName(itemIDPathParamKey)
	err := processController.Processor.ProcessItem(r.Context(), tenant, itemID)
	switch err {
	case nil:
		writeStatus(w, http.StatusAccepted, nil)
	case storage.ErrRecoveryItemNotFound:
		writeNotFound(w)
	case recovery.ErrItemInTerminalState:
		writeStatus(w, http.StatusConflict, err)
	default:
		logger.Error().Err(err).Str(itemIDLogFieldKey, itemID).Msg("error processing item on demand")
		writeErr(w, err)
	}
}

// GetPath returns the endpoint's path
func (processController *ProcessController) GetPath() string {
	return itemProcessPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (processController *ProcessController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, itemProcessPath, tenantIDPathParamKey, itemIDPathParamKey)
}

// ReplyController receives interpreted customer replies for a case
type ReplyController struct {
	Handler ReplyHandler
}

// NewReplyController creates a new instance of the reply controller
func NewReplyController(handler ReplyHandler) *ReplyController {
	return &ReplyController{Handler: handler}
}

// Post is the POST /queue/:tenantId/:itemId/reply endpoint controller
func (replyController *ReplyController) Post(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	logger := hlog.FromRequest(r)
	if !isJSONRequest(r) {
		writeUnsupportedMediaType(w)
		return
	}
	reply := recovery.ReplySignal{}
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		logger.Error().Err(err).Msg("error parsing reply body")
		writeBadRequest(w)
		return
	}
	tenant := params.ByName(tenantIDPathParamKey)
	itemID := params.ByName(itemIDPathParamKey)
	item, err := replyController.Handler.HandleReply(r.Context(), tenant, itemID, reply)
	switch err {
	case nil:
		writeJSON(w, map[string]string{"status": item.Status.String()})
	case storage.ErrRecoveryItemNotFound:
		writeNotFound(w)
	case recovery.ErrItemInTerminalState:
		writeStatus(w, http.StatusConflict, err)
	case recovery.ErrItemLocked:
		// A worker holds the case's lease right now; the provider should redeliver
		writeStatus(w, http.StatusConflict, err)
	default:
		logger.Error().Err(err).Str(itemIDLogFieldKey, itemID).Msg("error handling reply")
		writeErr(w, err)
	}
}

// GetPath returns the endpoint's path
func (replyController *ReplyController) GetPath() string {
	return itemReplyPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (replyController *ReplyController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, itemReplyPath, tenantIDPathParamKey, itemIDPathParamKey)
}
