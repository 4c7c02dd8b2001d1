package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue records enqueued jobs without a database.
type fakeQueue struct {
	jobs []*queue.Job
}

func (f *fakeQueue) RegisterHandler(jobType queue.JobType, handler queue.JobHandler) {}

func (f *fakeQueue) Enqueue(job *queue.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func setupEventRouter(q *fakeQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewEventHandler(q)
	router.POST("/api/v1/events/order-delivered", handler.OrderDelivered)
	return router
}

func TestOrderDeliveredFansOutBothConsumers(t *testing.T) {
	q := &fakeQueue{}
	router := setupEventRouter(q)

	body, _ := json.Marshal(map[string]interface{}{
		"order_id": uuid.New().String(),
		"trigger":  "order_delivered",
		"metadata": map[string]interface{}{"carrier": "dhl"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/order-delivered", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, q.jobs, 2)

	types := map[queue.JobType]bool{}
	for _, job := range q.jobs {
		types[job.Type] = true
		assert.Equal(t, 5, job.MaxRetries)
	}
	assert.True(t, types[queue.JobTypeCommissionCreate])
	assert.True(t, types[queue.JobTypeReferralPoints])
}

func TestOrderDeliveredRejectsInvalidPayload(t *testing.T) {
	q := &fakeQueue{}
	router := setupEventRouter(q)

	cases := []string{
		`{}`,
		`{"order_id": "not-a-uuid", "trigger": "order_delivered"}`,
		`{"order_id": "` + uuid.New().String() + `"}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events/order-delivered", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		assert.Empty(t, q.jobs)
	}
}
