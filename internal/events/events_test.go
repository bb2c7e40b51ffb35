package events

import (
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ShayCichocki/kai/pkg/models"
)

func TestEmit_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(nil, models.ThinkingEvent("x"))
		var f Func
		f.Emit(models.ThinkingEvent("x"))
	})
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Emit(Multi{a, nil, b}, models.ToolCallEvent("file_system", nil))
	Emit(Multi{a}, models.ThinkingEvent("hmm"))

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.Events(), 1)
	assert.Len(t, a.OfType(models.EventThinking), 1)
}

func TestChannel_DropsWhenFull(t *testing.T) {
	c := NewChannel(1, nil)
	c.Emit(models.ThinkingEvent("first"))
	c.Emit(models.ThinkingEvent("second"))

	assert.Equal(t, uint64(1), c.DroppedCount())
	got := <-c.Events()
	assert.Equal(t, "first", got.Thought)
	c.Close()
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	NewLog(zap.New(core)).Emit(models.PipelineUpdateEvent(4, models.TaskDeployed, "done"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "pipeline_update", fields["type"])
	assert.Equal(t, int64(4), fields["task"])
}

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestNATS_Publishes(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sink := NewNATS(nc, "", nil)
	sub, err := nc.SubscribeSync(sink.Subject(models.EventPlanUpdate))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	sink.Emit(models.PlanUpdateEvent("step_1", models.StepRunning, "writing code"))
	require.NoError(t, nc.Flush())

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "kai.events.plan_update", msg.Subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "step_1", got["stepId"])
	assert.Equal(t, "RUNNING", got["status"])
}
