package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type fakeExpirer struct {
	calls int
	count int
	err   error
}

func (f *fakeExpirer) ExpireAll(ctx context.Context) (int, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return f.count, f.err
}

func newObserved(expire ExpireFunc) (*CronManager, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewCronManager(expire, zap.New(core)), logs
}

func TestExpireSubscriptions_LogsCount(t *testing.T) {
	exp := &fakeExpirer{count: 3}
	m, logs := newObserved(exp.ExpireAll)

	m.ExpireSubscriptions()

	assert.Equal(t, 1, exp.calls)
	entries := logs.FilterMessage("job completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["affected"])
	assert.Equal(t, JobExpireSubscriptions, entries[0].ContextMap()["job"])
}

func TestExpireSubscriptions_LogsFailure(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("upstream down")}
	m, logs := newObserved(exp.ExpireAll)

	m.ExpireSubscriptions()

	assert.Equal(t, 1, logs.FilterMessage("job failed").Len())
	assert.Zero(t, logs.FilterMessage("job completed").Len())
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	m, _ := newObserved((&fakeExpirer{}).ExpireAll)
	assert.Error(t, m.Start("not a schedule"))
}

func TestStartStop(t *testing.T) {
	m, logs := newObserved((&fakeExpirer{}).ExpireAll)
	require.NoError(t, m.Start("0 0 * * * *"))
	assert.Len(t, m.cron.Entries(), 1)
	m.Stop()
	assert.Equal(t, 1, logs.FilterMessage("cron jobs stopped").Len())
}
