package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/database/testutil"
	"github.com/dicri-gt/dicri-backend/internal/models"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
)

func newExpedienteService(t *testing.T) (*ExpedienteService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewExpedienteService(db, nil)
	require.NoError(t, err)
	return svc, db
}

func TestCreateAssignsSequentialFolio(t *testing.T) {
	svc, _ := newExpedienteService(t)
	ctx := context.Background()

	fixed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	first, err := svc.Create(ctx, CreateExpedienteInput{Descripcion: "Caso uno", Sede: "GUA"}, 1)
	require.NoError(t, err)
	require.Equal(t, "DICRI-2026-00001", first.Folio)

	second, err := svc.Create(ctx, CreateExpedienteInput{Descripcion: "Caso dos", Sede: "GUA"}, 1)
	require.NoError(t, err)
	require.Equal(t, "DICRI-2026-00002", second.Folio)

	// A new year restarts the sequence.
	next := time.Date(2027, 1, 2, 9, 0, 0, 0, time.UTC)
	third, err := svc.Create(ctx, CreateExpedienteInput{Descripcion: "Caso tres", FechaRegistro: &next}, 1)
	require.NoError(t, err)
	require.Equal(t, "DICRI-2027-00001", third.Folio)
}

func TestListFilters(t *testing.T) {
	svc, _ := newExpedienteService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		fecha := base.AddDate(0, 0, i)
		sede := "GUA"
		if i%2 == 1 {
			sede = "QUE"
		}
		_, err := svc.Create(ctx, CreateExpedienteInput{
			Descripcion:   fmt.Sprintf("Caso %d", i),
			Sede:          sede,
			FechaRegistro: &fecha,
		}, 1)
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, ExpedienteFilter{Sede: "QUE"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	from := base.AddDate(0, 0, 3)
	items, total, err = svc.List(ctx, ExpedienteFilter{From: &from})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	items, total, err = svc.List(ctx, ExpedienteFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, items, 2)
}

func TestUpdateAndSoftDelete(t *testing.T) {
	svc, db := newExpedienteService(t)
	ctx := context.Background()

	exp, err := svc.Create(ctx, CreateExpedienteInput{Descripcion: "Original"}, 1)
	require.NoError(t, err)

	nueva := "Actualizada"
	updated, err := svc.Update(ctx, exp.ID, UpdateExpedienteInput{Descripcion: &nueva}, 1)
	require.NoError(t, err)
	require.Equal(t, "Actualizada", updated.Descripcion)

	require.NoError(t, svc.Delete(ctx, exp.ID, 1))

	_, err = svc.Get(ctx, exp.ID)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// The row survives as a soft delete and its folio stays reserved.
	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Expediente{}).Where("id = ?", exp.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	again, err := svc.Create(ctx, CreateExpedienteInput{Descripcion: "Nuevo"}, 1)
	require.NoError(t, err)
	require.NotEqual(t, exp.Folio, again.Folio)
}

func TestIndicioLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	expSvc, err := NewExpedienteService(db, nil)
	require.NoError(t, err)
	indSvc, err := NewIndicioService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	exp, err := expSvc.Create(ctx, CreateExpedienteInput{Descripcion: "Con indicios"}, 1)
	require.NoError(t, err)

	indicio, err := indSvc.Create(ctx, exp.ID, CreateIndicioInput{
		Descripcion: "Arma blanca",
		Color:       "plateado",
		PesoGramos:  230.5,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, exp.ID, indicio.ExpedienteID)

	_, err = indSvc.Create(ctx, 9999, CreateIndicioInput{Descripcion: "Huérfano"}, 1)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	peso := 231.0
	updated, err := indSvc.Update(ctx, indicio.ID, UpdateIndicioInput{PesoGramos: &peso}, 1)
	require.NoError(t, err)
	require.Equal(t, 231.0, updated.PesoGramos)

	items, err := indSvc.ListByExpediente(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, indSvc.Delete(ctx, indicio.ID, 1))
	items, err = indSvc.ListByExpediente(ctx, exp.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}
