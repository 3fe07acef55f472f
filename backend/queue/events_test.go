package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jghoshh/trailhead/models"
)

// fakeProducer captures published bodies.
type fakeProducer struct {
	published [][]byte
	err       error
}

func (p *fakeProducer) Publish(body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func TestProcessEventPublishesJSON(t *testing.T) {
	producer := &fakeProducer{}
	q := &Queue{Producers: []Producer{producer}}

	event := &models.AnalyticsEvent{
		ID:        "ev-1",
		UserID:    "u1",
		EventType: models.EventTaskCompleted,
		EventData: map[string]interface{}{"taskId": "task-a", "completed": true},
	}
	assert.NoError(t, ProcessEvent(event, q))
	assert.Len(t, producer.published, 1)

	decoded := &models.AnalyticsEvent{}
	assert.NoError(t, json.Unmarshal(producer.published[0], decoded))
	assert.Equal(t, "ev-1", decoded.ID)
	assert.Equal(t, models.EventTaskCompleted, decoded.EventType)
	assert.Equal(t, "task-a", decoded.EventData["taskId"])
}

func TestProcessEventRoundRobin(t *testing.T) {
	first := &fakeProducer{}
	second := &fakeProducer{}
	q := &Queue{Producers: []Producer{first, second}}

	for i := 0; i < 4; i++ {
		assert.NoError(t, ProcessEvent(&models.AnalyticsEvent{ID: "ev"}, q))
	}
	assert.Len(t, first.published, 2)
	assert.Len(t, second.published, 2)
}

func TestProcessEventNoProducers(t *testing.T) {
	assert.Error(t, ProcessEvent(&models.AnalyticsEvent{ID: "ev"}, &Queue{}))
}

func TestProcessEventPublishFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	q := &Queue{Producers: []Producer{producer}}
	assert.Error(t, ProcessEvent(&models.AnalyticsEvent{ID: "ev"}, q))
}
