package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var got []string
	d.Subscribe(EventAgentReplied, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.DepartmentID)
		return errors.New("boom")
	})
	d.Subscribe(EventAgentReplied, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventAgentReplied, func(_ context.Context, e Event) error {
		got = append(got, "third:"+e.DepartmentID)
		return nil
	})
	d.Subscribe(EventDepartmentRemoved, func(context.Context, Event) error {
		got = append(got, "wrong type")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventAgentReplied, DepartmentID: "sales-1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first:sales-1", "third:sales-1"}, got)
	assert.Equal(t, 2, logs.Len())
}
