package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
)

func TestHostServiceCreate(t *testing.T) {
	h := newHarness(t)
	house, hosts := h.seedHouse(t, 2)

	assert.Equal(t, []int64{hosts[0].ID, hosts[1].ID}, house.HostIDs)
	assert.Equal(t, house.ID, hosts[0].HouseID)
}

func TestHostServiceCreateValidation(t *testing.T) {
	h := newHarness(t)
	house, _ := h.seedHouse(t, 0)

	_, err := h.hostSvc.Create(context.Background(), house.ID, "   ")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.MissingName, verr.Reason)

	_, err = h.hostSvc.Create(context.Background(), 404, "Speaker")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestHostServiceCreatePartialCommit(t *testing.T) {
	h := newHarness(t)
	house, _ := h.seedHouse(t, 0)
	h.houses.saveFailures = backRefAttempts

	_, err := h.hostSvc.Create(context.Background(), house.ID, "Speaker")

	var pc *domain.PartialCommitError
	require.ErrorAs(t, err, &pc)
	assert.Equal(t, "host", pc.Entity)
	assert.NotZero(t, pc.EntityID)
	assert.Equal(t, []reconcile.Kind{reconcile.PartialCommit}, h.reports.kinds())
}

func TestHostServiceDeleteStripsAlarms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts := h.seedHouse(t, 2)
	alarm, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID, hosts[1].ID), nil)
	require.NoError(t, err)

	require.NoError(t, h.hostSvc.Delete(ctx, hosts[0].ID, house.ID))

	assert.Equal(t, []int64{hosts[1].ID}, h.reloadHouse(t, house.ID).HostIDs)
	stored, err := h.alarms.FindByID(ctx, alarm.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{hosts[1].ID}, stored.HostIDs)
	gone, err := h.hosts.FindByID(ctx, hosts[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestHostServiceDeleteKeepsConcurrentAlarmEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts := h.seedHouse(t, 3)
	alarm, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID, hosts[1].ID), nil)
	require.NoError(t, err)

	// The alarm gains a host after the delete has listed it.
	h.alarms.beforeDetach = func() {
		h.alarms.beforeDetach = nil
		upd := AlarmUpdate{AlarmInput: alarmInput(hosts[0].ID, hosts[1].ID, hosts[2].ID), Active: strPtr("true")}
		_, err := h.alarmSvc.Update(ctx, alarm.ID, house.ID, "user-1", upd, nil)
		require.NoError(t, err)
	}

	require.NoError(t, h.hostSvc.Delete(ctx, hosts[0].ID, house.ID))

	stored, err := h.alarms.FindByID(ctx, alarm.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{hosts[1].ID, hosts[2].ID}, stored.HostIDs)
	assert.True(t, stored.Active)
}

func TestHostServiceDeleteAlarmDetachFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts := h.seedHouse(t, 2)
	_, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID, hosts[1].ID), nil)
	require.NoError(t, err)
	h.alarms.saveErr = errDBLocked

	err = h.hostSvc.Delete(ctx, hosts[0].ID, house.ID)
	require.ErrorIs(t, err, errDBLocked)

	assert.Equal(t, []reconcile.Kind{reconcile.StaleReference}, h.reports.kinds())
	still, err := h.hosts.FindByID(ctx, hosts[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestHostServiceDeleteRefusesSoleHost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts := h.seedHouse(t, 1)
	_, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID), nil)
	require.NoError(t, err)

	err = h.hostSvc.Delete(ctx, hosts[0].ID, house.ID)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.HostInUse, verr.Reason)
	assert.Equal(t, []int64{hosts[0].ID}, h.reloadHouse(t, house.ID).HostIDs)
}

func TestHostServiceDeleteWrongHouse(t *testing.T) {
	h := newHarness(t)
	_, hosts := h.seedHouse(t, 1)
	other, _ := h.seedHouse(t, 0)

	err := h.hostSvc.Delete(context.Background(), hosts[0].ID, other.ID)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
