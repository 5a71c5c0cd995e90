package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
)

type notice struct {
	kind    drafterr.Kind
	message string
}

type recordingNotifier struct {
	notices []notice
}

func (n *recordingNotifier) Notify(kind drafterr.Kind, message string) {
	n.notices = append(n.notices, notice{kind, message})
}

func TestTriggerRejectsReentry(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runs := 0
	trigger := NewTrigger(nil, nil, func(context.Context) (Result, error) {
		runs++
		close(started)
		<-release
		return Result{Comment: "done"}, nil
	})

	assert.Equal(t, IdleLabel, trigger.Label())

	type outcome struct {
		res Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := trigger.Activate(context.Background())
		first <- outcome{res, err}
	}()
	<-started

	assert.True(t, trigger.Busy())
	assert.Equal(t, BusyLabel, trigger.Label())
	_, err := trigger.Activate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, "done", got.res.Comment)
	assert.Equal(t, 1, runs)
	assert.False(t, trigger.Busy())
	assert.Equal(t, IdleLabel, trigger.Label())
}

func TestTriggerNotifiesFailureOnceAndRestores(t *testing.T) {
	notifier := &recordingNotifier{}
	trigger := NewTrigger(nil, notifier, func(context.Context) (Result, error) {
		return Result{}, drafterr.New(drafterr.KindRateLimit, "Rate limit or quota exceeded.")
	})

	_, err := trigger.Activate(context.Background())

	require.Error(t, err)
	assert.Equal(t, []notice{{drafterr.KindRateLimit, "Rate limit or quota exceeded."}}, notifier.notices)
	assert.False(t, trigger.Busy())

	_, err = trigger.Activate(context.Background())
	require.Error(t, err)
	assert.Len(t, notifier.notices, 2, "a later activation runs again")
}

func TestTriggerNotifiesClipboardFallback(t *testing.T) {
	notifier := &recordingNotifier{}
	trigger := NewTrigger(nil, notifier, func(context.Context) (Result, error) {
		return Result{Comment: "draft", Outcome: deliver.OutcomeClipboard}, nil
	})

	res, err := trigger.Activate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, deliver.OutcomeClipboard, res.Outcome)
	assert.Equal(t, []notice{{drafterr.KindDeliveryDegraded, deliver.ClipboardNotice}}, notifier.notices)
}

func TestTriggerSuccessIsSilent(t *testing.T) {
	notifier := &recordingNotifier{}
	trigger := NewTrigger(nil, notifier, func(context.Context) (Result, error) {
		return Result{Comment: "draft", Outcome: deliver.OutcomeTextInput}, nil
	})

	_, err := trigger.Activate(context.Background())

	require.NoError(t, err)
	assert.Empty(t, notifier.notices)
}

func TestNotifierFunc(t *testing.T) {
	var got string
	NotifierFunc(func(_ drafterr.Kind, message string) { got = message }).Notify(drafterr.KindService, "boom")
	assert.Equal(t, "boom", got)
}

func TestTriggerDoSharesBusyState(t *testing.T) {
	trigger := NewTrigger(nil, nil, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := trigger.Do(context.Background(), func(context.Context) (Result, error) {
			close(started)
			<-release
			return Result{}, nil
		})
		done <- err
	}()
	<-started

	_, err := trigger.Do(context.Background(), func(context.Context) (Result, error) {
		t.Fatal("must not run while busy")
		return Result{}, nil
	})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestTriggerWithoutActionDoesNotPanic(t *testing.T) {
	notifier := &recordingNotifier{}
	trigger := NewTrigger(nil, notifier, nil)

	_, err := trigger.Activate(context.Background())
	assert.ErrorIs(t, err, ErrNoAction)

	_, err = trigger.Do(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAction)

	assert.False(t, trigger.Busy())
	assert.Empty(t, notifier.notices)
}
