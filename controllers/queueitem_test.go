package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

func TestQueueItemGet(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mItemRepo := new(RecoveryItemRepositoryMockImpl)
		mAttemptRepo := new(AttemptRepositoryMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewQueueItemController(mItemRepo, mAttemptRepo))
		item := getTestItem(t, "tenant-1")
		attempt, err := data.NewRecoveryAttempt(item, data.AttemptMethodSMS, "content-1")
		assert.Nil(t, err)
		attempt.Success = true
		mItemRepo.On("Get", "tenant-1", item.ID.String()).Return(item, nil)
		mAttemptRepo.On("GetByItem", item.ID.String()).Return([]*data.RecoveryAttempt{attempt}, nil)
		req, _ := http.NewRequest("GET", "/queue/tenant-1/"+item.ID.String(), nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		outModel := &QueueItemModel{}
		json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(outModel)
		assert.Equal(t, item.ID.String(), outModel.ID)
		assert.Equal(t, data.RecoveryQueuedStr, outModel.Status)
		assert.Equal(t, 1, len(outModel.Attempts))
		assert.Equal(t, data.AttemptMethodSMS, outModel.Attempts[0].Method)
		assert.True(t, outModel.Attempts[0].Success)
		mItemRepo.AssertExpectations(t)
		mAttemptRepo.AssertExpectations(t)
	})
	t.Run("NotFound", func(t *testing.T) {
		mItemRepo := new(RecoveryItemRepositoryMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewQueueItemController(mItemRepo, new(AttemptRepositoryMockImpl)))
		mItemRepo.On("Get", "tenant-1", "unknown").Return(nil, storage.ErrRecoveryItemNotFound)
		req, _ := http.NewRequest("GET", "/queue/tenant-1/unknown", nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		mItemRepo.AssertExpectations(t)
	})
	t.Run("AttemptQueryError", func(t *testing.T) {
		mItemRepo := new(RecoveryItemRepositoryMockImpl)
		mAttemptRepo := new(AttemptRepositoryMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewQueueItemController(mItemRepo, mAttemptRepo))
		item := getTestItem(t, "tenant-1")
		expectedErr := errors.New("attempt log unavailable")
		mItemRepo.On("Get", "tenant-1", item.ID.String()).Return(item, nil)
		mAttemptRepo.On("GetByItem", item.ID.String()).Return(nil, expectedErr)
		req, _ := http.NewRequest("GET", "/queue/tenant-1/"+item.ID.String(), nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mItemRepo.AssertExpectations(t)
		mAttemptRepo.AssertExpectations(t)
	})
}

func TestProcessPost(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		mProcessor := new(ItemProcessorMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewProcessController(mProcessor))
		mProcessor.On("ProcessItem", "tenant-1", "item-1").Return(nil)
		req, _ := http.NewRequest("POST", "/queue/tenant-1/item-1/process", nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusAccepted, rr.Code)
		mProcessor.AssertExpectations(t)
	})
	t.Run("NotFound", func(t *testing.T) {
		mProcessor := new(ItemProcessorMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewProcessController(mProcessor))
		mProcessor.On("ProcessItem", "tenant-1", "unknown").Return(storage.ErrRecoveryItemNotFound)
		req, _ := http.NewRequest("POST", "/queue/tenant-1/unknown/process", nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		mProcessor.AssertExpectations(t)
	})
	t.Run("TerminalConflict", func(t *testing.T) {
		mProcessor := new(ItemProcessorMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewProcessController(mProcessor))
		mProcessor.On("ProcessItem", "tenant-1", "item-1").Return(recovery.ErrItemInTerminalState)
		req, _ := http.NewRequest("POST", "/queue/tenant-1/item-1/process", nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
		mProcessor.AssertExpectations(t)
	})
	t.Run("ProcessorError", func(t *testing.T) {
		mProcessor := new(ItemProcessorMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewProcessController(mProcessor))
		mProcessor.On("ProcessItem", "tenant-1", "item-1").Return(errors.New("lock store unavailable"))
		req, _ := http.NewRequest("POST", "/queue/tenant-1/item-1/process", nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mProcessor.AssertExpectations(t)
	})
}

func getReplyRequest(t *testing.T, itemID, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", "/queue/tenant-1/"+itemID+"/reply", strings.NewReader(body))
	assert.Nil(t, err)
	req.Header.Set(headerContentType, jsonContentTypeHeaderValue)
	return req
}

func TestReplyPost(t *testing.T) {
	t.Run("HighConfidenceReply", func(t *testing.T) {
		mHandler := new(ReplyHandlerMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(mHandler))
		item := getTestItem(t, "tenant-1")
		item.Status = data.RecoveryRecovered
		mHandler.On("HandleReply", "tenant-1", item.ID.String(),
			recovery.ReplySignal{Confidence: 0.92, ContentRef: "reply-1"}).Return(item, nil)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, item.ID.String(), `{"confidence":0.92,"contentRef":"reply-1"}`))
		assert.Equal(t, http.StatusOK, rr.Code)
		outBody := make(map[string]string)
		json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(&outBody)
		assert.Equal(t, data.RecoveryRecoveredStr, outBody["status"])
		mHandler.AssertExpectations(t)
	})
	t.Run("UnsupportedMediaType", func(t *testing.T) {
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(new(ReplyHandlerMockImpl)))
		req, _ := http.NewRequest("POST", "/queue/tenant-1/item-1/reply", strings.NewReader("confidence=0.92"))
		req.Header.Set(headerContentType, "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})
	t.Run("UnparseableBody", func(t *testing.T) {
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(new(ReplyHandlerMockImpl)))
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, "item-1", `{"confidence":`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("NotFound", func(t *testing.T) {
		mHandler := new(ReplyHandlerMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(mHandler))
		mHandler.On("HandleReply", "tenant-1", "unknown", mock.Anything).Return(nil, storage.ErrRecoveryItemNotFound)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, "unknown", `{"confidence":0.92}`))
		assert.Equal(t, http.StatusNotFound, rr.Code)
		mHandler.AssertExpectations(t)
	})
	t.Run("TerminalConflict", func(t *testing.T) {
		mHandler := new(ReplyHandlerMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(mHandler))
		item := getTestItem(t, "tenant-1")
		item.Status = data.RecoveryEscalated
		mHandler.On("HandleReply", "tenant-1", item.ID.String(), mock.Anything).Return(item, recovery.ErrItemInTerminalState)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, item.ID.String(), `{"confidence":0.92}`))
		assert.Equal(t, http.StatusConflict, rr.Code)
		mHandler.AssertExpectations(t)
	})
	t.Run("LockedConflict", func(t *testing.T) {
		mHandler := new(ReplyHandlerMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(mHandler))
		item := getTestItem(t, "tenant-1")
		mHandler.On("HandleReply", "tenant-1", item.ID.String(), mock.Anything).Return(item, recovery.ErrItemLocked)
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, item.ID.String(), `{"confidence":0.92}`))
		assert.Equal(t, http.StatusConflict, rr.Code)
		mHandler.AssertExpectations(t)
	})
	t.Run("HandlerError", func(t *testing.T) {
		mHandler := new(ReplyHandlerMockImpl)
		testRouter := httprouter.New()
		setupAPIRoutes(testRouter, NewReplyController(mHandler))
		mHandler.On("HandleReply", "tenant-1", "item-1", mock.Anything).Return(nil, errors.New("policy unavailable"))
		rr := httptest.NewRecorder()
		testRouter.ServeHTTP(rr, getReplyRequest(t, "item-1", `{"confidence":0.92}`))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mHandler.AssertExpectations(t)
	})
}

func TestQueueItemFormatAsRelativeLink(t *testing.T) {
	params := []httprouter.Param{{Key: tenantIDPathParamKey, Value: "tenant-1"}, {Key: itemIDPathParamKey, Value: "item-1"}}
	assert.Equal(t, "/queue/tenant-1/item-1", NewQueueItemController(new(RecoveryItemRepositoryMockImpl), new(AttemptRepositoryMockImpl)).FormatAsRelativeLink(params...))
	assert.Equal(t, "/queue/tenant-1/item-1/process", NewProcessController(new(ItemProcessorMockImpl)).FormatAsRelativeLink(params...))
	assert.Equal(t, "/queue/tenant-1/item-1/reply", NewReplyController(new(ReplyHandlerMockImpl)).FormatAsRelativeLink(params...))
}
