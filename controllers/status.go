package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/tusharfilia/ottoai-backend/circuitbreaker"
	"github.com/tusharfilia/ottoai-backend/recovery"
)

const (
	statusPath = "/_status"
)

// ProcessorStatusSource exposes the operator snapshot of the queue processor
type ProcessorStatusSource interface {
	Status() *recovery.ProcessorStatus
}

// AppData to deserialize in status endpoint
type AppData struct {
	Processor *recovery.ProcessorStatus `json:"processor"`
	Breakers  []circuitbreaker.Snapshot `json:"breakers"`
}

var getJSON = func(buf *bytes.Buffer, data interface{}) error {
	return json.NewEncoder(buf).Encode(data)
}

// NewStatusController Factory for new StatusController
func NewStatusController(processor ProcessorStatusSource, breakers *circuitbreaker.Registry) *StatusController {
	statusController := &StatusController{processor: processor, breakers: breakers}
	return statusController
}

// StatusController is the controller for `/_status` endpoint
type StatusController struct {
	processor ProcessorStatusSource
	breakers  *circuitbreaker.Registry
}

// GetPath returns the endpoint path
func (cont *StatusController) GetPath() string {
	return statusPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (cont *StatusController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return statusPath
}

// Get is the GET /_status endpoint controller
func (cont *StatusController) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	data := AppData{Processor: cont.processor.Status(), Breakers: cont.breakers.GetSnapshots()}
	writeJSON(w, data)
}
