package archive

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gr-butler/weathernode/data"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	query string
	args  []interface{}
	err   error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.query = query
	f.args = args
	return nil, f.err
}

func TestWriteRecord(t *testing.T) {
	store := data.CreateStore()
	taken := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.Update(data.Reading{TemperatureF: 70, HumidityPct: 45, PressureInHg: 29.92, DewPointF: 48, SignalDBm: -60, Taken: taken})

	db := &fakeDB{}
	r := &Recorder{db: db, store: store}
	require.NoError(t, r.WriteRecord(context.Background()))

	assert.Equal(t, insertReading, db.query)
	require.Len(t, db.args, 6)
	assert.Equal(t, taken, db.args[0])
	assert.Equal(t, 70.0, db.args[1])
	assert.Equal(t, sql.NullFloat64{Float64: 48, Valid: true}, db.args[4])
	assert.Equal(t, -60, db.args[5])
}

func TestWriteRecordWithoutDewPoint(t *testing.T) {
	store := data.CreateStore()
	store.Update(data.Reading{TemperatureF: 50, DewPointF: math.NaN()})

	db := &fakeDB{}
	r := &Recorder{db: db, store: store}
	require.NoError(t, r.WriteRecord(context.Background()))
	dew := db.args[4].(sql.NullFloat64)
	assert.False(t, dew.Valid)
}

func TestWriteRecordError(t *testing.T) {
	db := &fakeDB{err: &pq.Error{Code: "42P01", Message: "relation \"readings\" does not exist"}}
	r := &Recorder{db: db, store: data.CreateStore()}
	err := r.WriteRecord(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42P01")

	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
	assert.NoError(t, r.Close())
}
