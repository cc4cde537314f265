package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/bridge"
	bmemory "github.com/viant/steer/service/bridge/memory"
	"github.com/viant/steer/service/store"
	smemory "github.com/viant/steer/service/store/memory"
)

// testWorkflow consumes bridge signals like a workflow engine would,
// republishing a revised plan for each feedback round.
func testWorkflow(ctx context.Context, signalBridge bridge.Service) {
	for {
		msg, err := signalBridge.Signals().Consume(ctx)
		if err != nil {
			return
		}
		signal := msg.T()
		if signal.Type == bridge.SignalFeedback {
			plan := fmt.Sprintf("revised plan per %q", signal.Message)
			_, _ = signalBridge.PublishPlan(ctx, signal.TaskID, plan, review.IntentReady, signal.Message)
		}
		_ = msg.Ack()
	}
}

type fixture struct {
	store  store.Service
	bridge bridge.Service
	server *httptest.Server
	cancel context.CancelFunc
}

func newFixture(t *testing.T, options ...Option) *fixture {
	t.Helper()
	reviews := smemory.New()
	signalBridge := bmemory.New(reviews)
	ctx, cancel := context.WithCancel(context.Background())
	go testWorkflow(ctx, signalBridge)
	server := httptest.NewServer(New(reviews, signalBridge, options...))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &fixture{store: reviews, bridge: signalBridge, server: server, cancel: cancel}
}

func (f *fixture) get(t *testing.T, taskID string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	request, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/tasks/"+taskID+"/review", nil)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	response, err := http.DefaultClient.Do(request)
	assert.NoError(t, err)
	return response, decodeBody(t, response)
}

func (f *fixture) post(t *testing.T, taskID string, body map[string]string, ifMatch string) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, _ := json.Marshal(body)
	request, _ := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/tasks/"+taskID+"/review", bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	if ifMatch != "" {
		request.Header.Set("If-Match", ifMatch)
	}
	response, err := http.DefaultClient.Do(request)
	assert.NoError(t, err)
	return response, decodeBody(t, response)
}

func decodeBody(t *testing.T, response *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode == http.StatusNotModified {
		return nil
	}
	var payload map[string]interface{}
	assert.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	return payload
}

func seed(t *testing.T, f *fixture, taskID, plan string) {
	t.Helper()
	f.bridge.Register(taskID)
	_, err := f.bridge.PublishPlan(context.Background(), taskID, plan, review.IntentFeedback, "")
	assert.NoError(t, err)
}

func TestGetSnapshot(t *testing.T) {
	f := newFixture(t)

	// Unseeded task: polling clients get an explicit "none" status
	response, body := f.get(t, "t1", nil)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "none", body["status"])
	assert.EqualValues(t, []interface{}{}, body["rounds"])

	seed(t, f, "t1", "initial plan")
	response, body = f.get(t, "t1", nil)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "reviewing", body["status"])
	assert.EqualValues(t, 1, body["version"])
	assert.EqualValues(t, "initial plan", body["current_plan"])
	assert.EqualValues(t, "1", response.Header.Get("ETag"))

	// Conditional GET against the current version short-circuits
	response, _ = f.get(t, "t1", map[string]string{"If-None-Match": `"1"`})
	assert.EqualValues(t, http.StatusNotModified, response.StatusCode)
	response, body = f.get(t, "t1", map[string]string{"If-None-Match": `"0"`})
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, 1, body["version"])
}

func TestFeedbackRoundTrip(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "t1", "initial plan")

	response, body := f.post(t, "t1", map[string]string{"action": "feedback", "message": "narrow the scope"}, `"1"`)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "2", response.Header.Get("ETag"))
	plan, ok := body["plan"].(map[string]interface{})
	if assert.True(t, ok) {
		assert.EqualValues(t, 2, plan["version"])
		assert.EqualValues(t, 1, plan["round"])
		assert.EqualValues(t, `revised plan per "narrow the scope"`, plan["message"])
		assert.EqualValues(t, "ready", plan["intent"])
	}

	// Snapshot now carries the transcript
	response, body = f.get(t, "t1", nil)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	rounds, ok := body["rounds"].([]interface{})
	if assert.True(t, ok) && assert.Len(t, rounds, 1) {
		round := rounds[0].(map[string]interface{})
		assert.EqualValues(t, "narrow the scope", round["message"])
		assert.EqualValues(t, 1, round["version_before"])
		assert.EqualValues(t, 2, round["version_after"])
	}
}

func TestFeedbackValidation(t *testing.T) {
	type testCase struct {
		name       string
		taskID     string
		body       map[string]string
		ifMatch    string
		expectCode int
	}

	f := newFixture(t)
	seed(t, f, "t1", "initial plan")

	tests := []testCase{{
		name:       "missing If-Match",
		taskID:     "t1",
		body:       map[string]string{"action": "feedback", "message": "hi"},
		expectCode: http.StatusBadRequest,
	}, {
		name:       "malformed If-Match",
		taskID:     "t1",
		body:       map[string]string{"action": "feedback", "message": "hi"},
		ifMatch:    "not-a-version",
		expectCode: http.StatusBadRequest,
	}, {
		name:       "empty message",
		taskID:     "t1",
		body:       map[string]string{"action": "feedback"},
		ifMatch:    `"1"`,
		expectCode: http.StatusBadRequest,
	}, {
		name:       "unknown action",
		taskID:     "t1",
		body:       map[string]string{"action": "escalate"},
		ifMatch:    `"1"`,
		expectCode: http.StatusBadRequest,
	}, {
		name:       "unknown task",
		taskID:     "ghost",
		body:       map[string]string{"action": "feedback", "message": "hi"},
		ifMatch:    `"1"`,
		expectCode: http.StatusNotFound,
	}, {
		name:       "stale version",
		taskID:     "t1",
		body:       map[string]string{"action": "feedback", "message": "hi"},
		ifMatch:    `"9"`,
		expectCode: http.StatusConflict,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			response, body := f.post(t, tc.taskID, tc.body, tc.ifMatch)
			assert.EqualValues(t, tc.expectCode, response.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	// None of the rejected mutations touched the record
	response, body := f.get(t, "t1", nil)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, 1, body["version"])
	assert.EqualValues(t, []interface{}{}, body["rounds"])
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "t1", "initial plan")

	response, body := f.post(t, "t1", map[string]string{"action": "approve"}, `"1"`)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "approved", body["status"])
	assert.EqualValues(t, "1", response.Header.Get("ETag"))

	// Idempotent replay against the frozen version
	response, body = f.post(t, "t1", map[string]string{"action": "approve"}, `"1"`)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "approved", body["status"])

	// Feedback after approval is final, not retryable
	response, _ = f.post(t, "t1", map[string]string{"action": "feedback", "message": "wait"}, `"1"`)
	assert.EqualValues(t, http.StatusBadRequest, response.StatusCode)
}

func TestApproveStaleVersion(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "t1", "initial plan")

	response, body := f.post(t, "t1", map[string]string{"action": "approve"}, `"7"`)
	assert.EqualValues(t, http.StatusConflict, response.StatusCode)
	assert.NotEmpty(t, body["error"])

	// Still reviewing
	_, body = f.get(t, "t1", nil)
	assert.EqualValues(t, "reviewing", body["status"])
}

func TestWorkflowUnavailable(t *testing.T) {
	f := newFixture(t)
	// Publish without registering: the review exists but no workflow listens
	_, err := f.bridge.PublishPlan(context.Background(), "t1", "plan", review.IntentFeedback, "")
	assert.NoError(t, err)

	response, body := f.post(t, "t1", map[string]string{"action": "feedback", "message": "hi"}, `"1"`)
	assert.EqualValues(t, http.StatusServiceUnavailable, response.StatusCode)
	assert.NotEmpty(t, body["error"])

	// The failed delivery released the in-flight guard, so a retry once the
	// workflow is back gets through instead of a conflict
	record, err := f.store.Get(context.Background(), "t1")
	assert.NoError(t, err)
	assert.False(t, record.Pending)
	f.bridge.Register("t1")
	response, _ = f.post(t, "t1", map[string]string{"action": "feedback", "message": "hi again"}, `"1"`)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
}

func TestConcurrentFeedbackSameVersion(t *testing.T) {
	reviews := smemory.New()
	signalBridge := bmemory.New(reviews)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// A deliberately slow workflow keeps the first revision in flight long
	// enough for the second caller to race it
	go func() {
		for {
			msg, err := signalBridge.Signals().Consume(ctx)
			if err != nil {
				return
			}
			signal := msg.T()
			if signal.Type == bridge.SignalFeedback {
				time.Sleep(100 * time.Millisecond)
				_, _ = signalBridge.PublishPlan(ctx, signal.TaskID, "revised plan", review.IntentReady, signal.Message)
			}
			_ = msg.Ack()
		}
	}()
	server := httptest.NewServer(New(reviews, signalBridge))
	defer server.Close()

	signalBridge.Register("t1")
	_, err := signalBridge.PublishPlan(context.Background(), "t1", "initial plan", review.IntentFeedback, "")
	assert.NoError(t, err)

	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			data, _ := json.Marshal(map[string]string{"action": "feedback", "message": fmt.Sprintf("change %d", n)})
			request, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/tasks/t1/review", bytes.NewReader(data))
			request.Header.Set("If-Match", `"1"`)
			response, postErr := http.DefaultClient.Do(request)
			if postErr != nil {
				codes <- 0
				return
			}
			_ = response.Body.Close()
			codes <- response.StatusCode
		}(i)
	}
	got := []int{<-codes, <-codes}
	sort.Ints(got)
	assert.EqualValues(t, []int{http.StatusOK, http.StatusConflict}, got)

	// Exactly one feedback was applied
	record, err := reviews.Get(context.Background(), "t1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, record.Version)
	assert.Len(t, record.Rounds, 1)
}

func TestFeedbackTimeout(t *testing.T) {
	reviews := smemory.New()
	signalBridge := bmemory.New(reviews)
	// No workflow consumes signals, so the wait can only expire
	server := httptest.NewServer(New(reviews, signalBridge, WithFeedbackTimeout(50*time.Millisecond)))
	defer server.Close()

	signalBridge.Register("t1")
	_, err := signalBridge.PublishPlan(context.Background(), "t1", "plan", review.IntentFeedback, "")
	assert.NoError(t, err)

	data, _ := json.Marshal(map[string]string{"action": "feedback", "message": "hi"})
	request, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/tasks/t1/review", bytes.NewReader(data))
	request.Header.Set("If-Match", `"1"`)
	response, err := http.DefaultClient.Do(request)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()
	assert.EqualValues(t, http.StatusGatewayTimeout, response.StatusCode)

	// The feedback itself was accepted; only the wait degraded.  A later GET
	// sees the revision once the workflow catches up.
	_, err = signalBridge.PublishPlan(context.Background(), "t1", "late revision", review.IntentReady, "hi")
	assert.NoError(t, err)
	snapshot, err := reviews.Get(context.Background(), "t1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, snapshot.Version)
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)
	seed(t, f, "t1", "plan")

	request, _ := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/tasks/t1/review", bytes.NewReader([]byte("{not json")))
	request.Header.Set("If-Match", `"1"`)
	response, err := http.DefaultClient.Do(request)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()
	assert.EqualValues(t, http.StatusBadRequest, response.StatusCode)
}
