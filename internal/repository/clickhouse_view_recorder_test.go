package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
)

type execCall struct {
	query string
	args  []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: q, args: args})
	return nil, f.err
}

func TestNewCHViewRecorderRejectsBadIdentifiers(t *testing.T) {
	_, err := NewCHViewRecorder(&fakeExecer{}, "ethticker", "snap; DROP TABLE x", nil)
	assert.Error(t, err)
}

func TestCHViewRecorderInit(t *testing.T) {
	db := &fakeExecer{}
	r, err := NewCHViewRecorder(db, "ethticker", "ticker_snapshots", nil)
	require.NoError(t, err)

	require.NoError(t, r.Init(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].query, "CREATE TABLE IF NOT EXISTS ethticker.ticker_snapshots")
}

func TestCHViewRecorderRecord(t *testing.T) {
	db := &fakeExecer{}
	r, err := NewCHViewRecorder(db, "ethticker", "ticker_snapshots", nil)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	view := &models.AggregatedView{
		Anchor:      "ETH",
		Price:       "2300.12",
		Volume:      "9000.00M",
		Supply:      "120.00M",
		Fiat:        map[string]string{"EUR": "2100.00"},
		ERC20:       map[string]string{},
		Omitted:     []string{"erc20.OMG"},
		GeneratedAt: at,
	}
	require.NoError(t, r.Record(context.Background(), view))
	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	require.Len(t, args, 8)
	assert.Equal(t, at, args[0])
	assert.Equal(t, "ETH", args[1])
	assert.Equal(t, `{"EUR":"2100.00"}`, args[5])
	assert.Equal(t, `{}`, args[6])
	assert.Equal(t, uint8(1), args[7])
}

func TestCHViewRecorderRecordError(t *testing.T) {
	r, err := NewCHViewRecorder(&fakeExecer{err: errors.New("timeout")}, "db", "t", nil)
	require.NoError(t, err)
	assert.Error(t, r.Record(context.Background(), &models.AggregatedView{Anchor: "ETH"}))
}
