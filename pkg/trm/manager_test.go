package trm

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  int
	rolledBack int
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack++
	return nil
}

type fakeDB struct {
	begun int
	opts  *pgx.TxOptions
	tx    *fakeTx
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begun++
	return d.tx, nil
}

func (d *fakeDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	d.begun++
	d.opts = &opts
	return d.tx, nil
}

func TestDoCommits(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Value(TxKey).(pgx.Tx)
		assert.True(t, ok)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.tx.committed)
	assert.Zero(t, db.tx.rolledBack)
}

func TestDoRollsBackOnError(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db)
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, db.tx.committed)
	assert.Equal(t, 1, db.tx.rolledBack)
}

func TestNestedDoJoinsOuterTx(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.tx.committed)
}

func TestDoRollsBackOnPanic(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db)

	assert.Panics(t, func() {
		_ = m.Do(context.Background(), func(context.Context) error { panic("oops") })
	})
	assert.Equal(t, 1, db.tx.rolledBack)
}

func TestDoReadOnly(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db)

	require.NoError(t, m.DoReadOnly(context.Background(), func(context.Context) error { return nil }))
	require.NotNil(t, db.opts)
	assert.Equal(t, pgx.ReadOnly, db.opts.AccessMode)
}
