// Package archive copies readings to a remote Postgres database.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gr-butler/weathernode/data"
	"github.com/lib/pq"
	logger "github.com/sirupsen/logrus"
)

const createTable = `CREATE TABLE IF NOT EXISTS readings (
	id            BIGSERIAL PRIMARY KEY,
	taken         TIMESTAMPTZ NOT NULL,
	temperature_f DOUBLE PRECISION NOT NULL,
	humidity_pct  DOUBLE PRECISION NOT NULL,
	pressure_inhg DOUBLE PRECISION NOT NULL,
	dew_point_f   DOUBLE PRECISION,
	signal_dbm    INTEGER NOT NULL
)`

const insertReading = `INSERT INTO readings
	(taken, temperature_f, humidity_pct, pressure_inhg, dew_point_f, signal_dbm)
	VALUES ($1, $2, $3, $4, $5, $6)`

const writeTimeout = time.Second * 10

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Recorder struct {
	db    execer
	store *data.Store
	close func() error
}

// Open connects to Postgres and makes sure the readings table exists.
func Open(ctx context.Context, url string, store *data.Store) (*Recorder, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	r := &Recorder{db: db, store: store, close: db.Close}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", describe(err))
	}
	logger.Info("Archive database ready")
	return r, nil
}

// WriteRecord stores the current reading.
func (r *Recorder) WriteRecord(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	rd := r.store.Latest()
	dew := sql.NullFloat64{Float64: rd.DewPointF, Valid: !math.IsNaN(rd.DewPointF)}
	taken := rd.Taken
	if taken.IsZero() {
		taken = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertReading,
		taken.UTC(), rd.TemperatureF, rd.HumidityPct, rd.PressureInHg, dew, rd.SignalDBm)
	if err != nil {
		return fmt.Errorf("write record: %w", describe(err))
	}
	return nil
}

func (r *Recorder) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// describe adds the Postgres error code and detail when there is one.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (code %v %v)", err, pqErr.Code, pqErr.Detail)
	}
	return err
}
