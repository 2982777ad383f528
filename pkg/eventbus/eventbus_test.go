package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversToAllSubscribersInOrder(t *testing.T) {
	b := New()
	var order []string

	b.Subscribe(TopicClaimCreated, func(Event) { order = append(order, "first") })
	b.Subscribe(TopicClaimCreated, func(Event) { order = append(order, "second") })

	b.Publish(TopicClaimCreated, "payload")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublish_OnlyReachesMatchingTopic(t *testing.T) {
	b := New()
	var claimCalls, goalCalls int

	b.Subscribe(TopicClaimCreated, func(Event) { claimCalls++ })
	b.Subscribe(TopicGoalCreated, func(Event) { goalCalls++ })

	b.Publish(TopicClaimCreated, nil)
	assert.Equal(t, 1, claimCalls)
	assert.Equal(t, 0, goalCalls)
}

func TestPublish_CarriesPayloadToHandler(t *testing.T) {
	b := New()
	var got any
	b.Subscribe(TopicUnitCreated, func(e Event) { got = e.Payload })

	b.Publish(TopicUnitCreated, 42)
	assert.Equal(t, 42, got)
}

func TestUnsubscribe_StopsFutureDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsubscribe := b.Subscribe(TopicTaskCompleted, func(Event) { calls++ })

	b.Publish(TopicTaskCompleted, nil)
	unsubscribe()
	b.Publish(TopicTaskCompleted, nil)

	assert.Equal(t, 1, calls)
}

func TestUnsubscribe_LeavesOtherSubscribersIntact(t *testing.T) {
	b := New()
	var aCalls, bCalls int
	unsubA := b.Subscribe(TopicGoalUpdated, func(Event) { aCalls++ })
	b.Subscribe(TopicGoalUpdated, func(Event) { bCalls++ })

	unsubA()
	b.Publish(TopicGoalUpdated, nil)

	assert.Equal(t, 0, aCalls)
	assert.Equal(t, 1, bCalls)
}
