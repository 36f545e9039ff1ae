package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	tenantSLAPath = "/tenants/:" + tenantIDPathParamKey + "/sla"
)

// TenantSLAModel is the wire representation of a tenant's recovery policy.
// Windows are carried in whole minutes.
type TenantSLAModel struct {
	Tenant                  string    `json:"tenant"`
	ResponseWindowMinutes   uint      `json:"responseWindowMinutes"`
	EscalationWindowMinutes uint      `json:"escalationWindowMinutes"`
	MaxRetries              uint      `json:"maxRetries"`
	BusinessHourStart       int       `json:"businessHourStart"`
	BusinessHourEnd         int       `json:"businessHourEnd"`
	AIConfidenceThreshold   float64   `json:"aiConfidenceThreshold"`
	UpdatedAt               time.Time `json:"updatedAt,omitempty"`
}

func getTenantSLAModel(sla *data.TenantSLA) *TenantSLAModel {
	return &TenantSLAModel{
		Tenant:                  sla.Tenant,
		ResponseWindowMinutes:   uint(sla.ResponseWindow / time.Minute),
		EscalationWindowMinutes: uint(sla.EscalationWindow / time.Minute),
		MaxRetries:              sla.MaxRetries,
		BusinessHourStart:       sla.BusinessHourStart,
		BusinessHourEnd:         sla.BusinessHourEnd,
		AIConfidenceThreshold:   sla.AIConfidenceThreshold,
		UpdatedAt:               sla.UpdatedAt,
	}
}

// TenantSLAController is the controller for a tenant's recovery policy
type TenantSLAController struct {
	SLARepo storage.TenantSLARepository
}

// NewTenantSLAController creates a new instance of the tenant policy controller
func NewTenantSLAController(slaRepo storage.TenantSLARepository) *TenantSLAController {
	return &TenantSLAController{SLARepo: slaRepo}
}

// Get is the GET /tenants/:tenantId/sla endpoint controller; tenants without a
// stored policy get the configured default
func (slaController *TenantSLAController) Get(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sla, err := slaController.SLARepo.Get(params.ByName(tenantIDPathParamKey))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, getTenantSLAModel(sla))
}

// Put is the PUT /tenants/:tenantId/sla endpoint controller
func (slaController *TenantSLAController) Put(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	logger := hlog.FromRequest(r)
	if !isJSONRequest(r) {
		writeUnsupportedMediaType(w)
		return
	}
	model := &TenantSLAModel{}
	if err := json.NewDecoder(r.Body).Decode(model); err != nil {
		logger.Error().Err(err).Msg("error parsing tenant policy body")
		writeBadRequest(w)
		return
	}
	tenant := params.ByName(tenantIDPathParamKey)
	sla, err := data.NewTenantSLA(tenant, time.Duration(model.ResponseWindowMinutes)*time.Minute,
		time.Duration(model.EscalationWindowMinutes)*time.Minute, model.MaxRetries,
		model.BusinessHourStart, model.BusinessHourEnd, model.AIConfidenceThreshold)
	if err != nil {
		logger.Error().Err(err).Str("tenant", tenant).Msg("tenant policy rejected")
		writeStatus(w, http.StatusBadRequest, err)
		return
	}
	if sla, err = slaController.SLARepo.Store(sla); err != nil {
		writeErr(w, err)
		return
	}
	logger.Info().Str("tenant", tenant).Msg("tenant policy updated")
	writeJSON(w, getTenantSLAModel(sla))
}

// GetPath returns the endpoint's path
func (slaController *TenantSLAController) GetPath() string {
	return tenantSLAPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (slaController *TenantSLAController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, tenantSLAPath, tenantIDPathParamKey)
}
