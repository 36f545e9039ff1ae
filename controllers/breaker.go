package controllers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
	"github.com/tusharfilia/ottoai-backend/circuitbreaker"
)

const (
	breakerResetPath = "/breakers/:" + tenantIDPathParamKey + "/:" + servicePathParamKey + "/reset"
)

// BreakerResetController force closes one tenant's breaker for a downstream service
type BreakerResetController struct {
	Breakers *circuitbreaker.Registry
}

// NewBreakerResetController creates a new instance of the breaker reset controller
func NewBreakerResetController(breakers *circuitbreaker.Registry) *BreakerResetController {
	return &BreakerResetController{Breakers: breakers}
}

// Post is the POST /breakers/:tenantId/:service/reset endpoint controller
func (breakerController *BreakerResetController) Post(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	tenant := params.ByName(tenantIDPathParamKey)
	service := params.ByName(servicePathParamKey)
	if !breakerController.Breakers.Reset(tenant, service) {
		writeNotFound(w)
		return
	}
	hlog.FromRequest(r).Info().Str("tenant", tenant).Str("service", service).Msg("breaker force closed by operator")
	writeStatus(w, http.StatusNoContent, nil)
}

// GetPath returns the endpoint's path
func (breakerController *BreakerResetController) GetPath() string {
	return breakerResetPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (breakerController *BreakerResetController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return formatURL(params, breakerResetPath, tenantIDPathParamKey, servicePathParamKey)
}
