package kernel

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/config"
	"github.com/ashishact/ramble/pkg/llm"
)

func newTestKernel(t *testing.T, response string) *Kernel {
	t.Helper()
	k, err := Open(":memory:", Options{
		Config:   config.Default(),
		Log:      zerolog.Nop(),
		Provider: llm.StubProvider{Response: response},
	})
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

func TestInferDiscourseFunction_Question(t *testing.T) {
	assert.Equal(t, store.DiscourseQuest, InferDiscourseFunction("What time is the meeting?"))
}

func TestInferDiscourseFunction_Express(t *testing.T) {
	assert.Equal(t, store.DiscourseExpress, InferDiscourseFunction("I can't believe it worked!"))
}

func TestInferDiscourseFunction_Commit(t *testing.T) {
	assert.Equal(t, store.DiscourseCommit, InferDiscourseFunction("I will finish the report by Friday"))
}

func TestInferDiscourseFunction_DefaultAssert(t *testing.T) {
	assert.Equal(t, store.DiscourseAssert, InferDiscourseFunction("The meeting is at noon."))
}

func TestInferDiscourseFunction_Empty(t *testing.T) {
	assert.Equal(t, store.DiscourseAssert, InferDiscourseFunction("   "), "empty text should default to assert")
}

func startTestSession(t *testing.T, k *Kernel, now int64) *store.Session {
	t.Helper()
	sess, err := k.Session.StartSession(now)
	require.NoError(t, err)
	return sess
}

func TestProcessText_RejectsEmptyInput(t *testing.T) {
	k := newTestKernel(t, `{}`)
	sess := startTestSession(t, k, 1000)

	_, err := k.ProcessText("   ", 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProcessText_SanitizesWhitespaceAndTruncates(t *testing.T) {
	k := newTestKernel(t, `{}`)
	sess := startTestSession(t, k, 1000)

	result, err := k.ProcessText("  hello   there,\t\nworld  ", 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	assert.Equal(t, "hello there, world", result.Unit.SanitizedText)

	long := strings.Repeat("a", maxRawTextLength+500)
	result, err = k.ProcessText(long, 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	assert.Len(t, result.Unit.SanitizedText, maxRawTextLength)
}

func TestProcessText_OnlyAppliesCorrectionsToSpeech(t *testing.T) {
	k := newTestKernel(t, `{}`)
	sess := startTestSession(t, k, 1000)
	_, err := k.Correction.Learn("cophenhagen", "Copenhagen", 1000, nil)
	require.NoError(t, err)

	typed, err := k.ProcessText("I visited cophenhagen", 2000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	assert.Equal(t, "I visited cophenhagen", typed.Unit.SanitizedText, "typed text must not be rewritten by learned corrections")
	assert.Nil(t, typed.Correction)

	spoken, err := k.ProcessText("I visited cophenhagen", 3000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceSpeech})
	require.NoError(t, err)
	assert.Equal(t, "I visited Copenhagen", spoken.Unit.SanitizedText, "speech-sourced text should be corrected")
	require.NotNil(t, spoken.Correction)
}

func TestProcessText_EnqueuesExtractionAtCriticalPriority(t *testing.T) {
	k := newTestKernel(t, `{}`)
	sess := startTestSession(t, k, 1000)

	_, err := k.ProcessText("hello there", 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)

	status, err := k.Queue.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[store.TaskPending])

	tasks, err := k.Store.DequeueReady(10, time.Now().UnixMilli())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, store.PriorityCritical, tasks[0].Priority)
}

func TestProcessText_IncrementsSessionUnitCount(t *testing.T) {
	k := newTestKernel(t, `{}`)
	sess := startTestSession(t, k, 1000)

	_, err := k.ProcessText("first utterance", 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	_, err = k.ProcessText("second utterance", 2000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)

	reloaded, err := k.Store.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.UnitCount)
}

func TestProcessText_SignalsBackpressureAboveSoftLimit(t *testing.T) {
	k := newTestKernel(t, `{}`)
	k.Config.Queue.BackpressureSoftLimit = 1
	sess := startTestSession(t, k, 1000)

	first, err := k.ProcessText("first utterance", 1000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	assert.False(t, first.Backpressure, "pendingTasks at the soft limit should not yet trip backpressure")

	second, err := k.ProcessText("second utterance", 2000, ProcessTextOptions{SessionID: sess.ID, Source: store.SourceText})
	require.NoError(t, err)
	assert.True(t, second.Backpressure, "pendingTasks exceeding the soft limit must signal Backpressure")
}
