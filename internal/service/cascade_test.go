package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/reconcile"
	"github.com/vbonduro/homealarm/internal/store"
	"github.com/vbonduro/homealarm/internal/validation"
)

// seedFullHouse creates a house with an image, two hosts and two alarms with
// sounds.
func seedFullHouse(t *testing.T, h *harness) (*domain.House, []*domain.Host, []*domain.Alarm) {
	t.Helper()
	ctx := context.Background()
	house, err := h.houseSvc.Create(ctx, "admin", validation.HouseInput{Name: "Cabin"}, imageFile("front.jpg"))
	require.NoError(t, err)

	var hosts []*domain.Host
	for _, name := range []string{"Bedroom", "Kitchen"} {
		host, err := h.hostSvc.Create(ctx, house.ID, name)
		require.NoError(t, err)
		hosts = append(hosts, host)
	}

	var alarms []*domain.Alarm
	for _, name := range []string{"a.mp3", "b.wav"} {
		alarm, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID, hosts[1].ID), soundFile(name))
		require.NoError(t, err)
		alarms = append(alarms, alarm)
	}
	return h.reloadHouse(t, house.ID), hosts, alarms
}

func TestCascadeDeleteHouse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts, alarms := seedFullHouse(t, h)
	other, otherHosts := h.seedHouse(t, 1)
	otherAlarm, err := h.alarmSvc.Create(ctx, other.ID, "user-1", alarmInput(otherHosts[0].ID), soundFile("c.mp3"))
	require.NoError(t, err)

	result, err := h.houseSvc.Delete(ctx, house.ID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{hosts[0].ID, hosts[1].ID}, result.DeletedHosts)
	assert.ElementsMatch(t, []int64{alarms[0].ID, alarms[1].ID}, result.DeletedAlarms)
	assert.Empty(t, result.OrphanedAssets)

	gone, err := h.houses.FindByID(ctx, house.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	remaining, err := h.alarms.Find(ctx, store.AlarmFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, otherAlarm.ID, remaining[0].ID)
	assert.Equal(t, []string{otherAlarm.Sound.ID}, h.assets.liveIDs())
	assert.Empty(t, h.reports.events)
}

func TestCascadeFindsStaleDependents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts := h.seedHouse(t, 1)

	// An alarm the house never recorded, as left by a partial commit.
	h.houses.saveFailures = backRefAttempts
	_, err := h.alarmSvc.Create(ctx, house.ID, "user-1", alarmInput(hosts[0].ID), nil)
	var pc *domain.PartialCommitError
	require.ErrorAs(t, err, &pc)

	// And a recorded alarm id with no row behind it.
	stale := h.reloadHouse(t, house.ID)
	stale.AlarmIDs = append(stale.AlarmIDs, 777)
	require.NoError(t, h.houses.HouseStore.SaveRefs(ctx, stale))

	result, err := h.houseSvc.Delete(ctx, house.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{777, pc.EntityID}, result.DeletedAlarms)

	orphan, err := h.alarms.FindByID(ctx, pc.EntityID)
	require.NoError(t, err)
	assert.Nil(t, orphan)
}

func TestCascadeSkipsDependentsOfOtherHouses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, _ := h.seedHouse(t, 0)
	other, otherHosts := h.seedHouse(t, 1)
	otherAlarm, err := h.alarmSvc.Create(ctx, other.ID, "user-1", alarmInput(otherHosts[0].ID), soundFile("c.mp3"))
	require.NoError(t, err)

	corrupt := h.reloadHouse(t, house.ID)
	corrupt.HostIDs = append(corrupt.HostIDs, otherHosts[0].ID)
	corrupt.AlarmIDs = append(corrupt.AlarmIDs, otherAlarm.ID)
	require.NoError(t, h.houses.HouseStore.SaveRefs(ctx, corrupt))

	result, err := h.houseSvc.Delete(ctx, house.ID)
	require.NoError(t, err)
	assert.Empty(t, result.DeletedHosts)
	assert.Empty(t, result.DeletedAlarms)

	host, err := h.hosts.FindByID(ctx, otherHosts[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, host)
	alarm, err := h.alarms.FindByID(ctx, otherAlarm.ID)
	require.NoError(t, err)
	assert.NotNil(t, alarm)
	assert.Equal(t, []string{otherAlarm.Sound.ID}, h.assets.liveIDs())
	assert.Equal(t, []reconcile.Kind{reconcile.StaleReference, reconcile.StaleReference}, h.reports.kinds())
}

func TestCascadeContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, hosts, alarms := seedFullHouse(t, h)
	h.hosts.removeErr[hosts[0].ID] = errDBLocked
	h.alarms.removeErr[alarms[0].ID] = errDBLocked
	h.assets.failDelete[alarms[1].Sound.ID] = true

	result, err := h.houseSvc.Delete(ctx, house.ID)

	var cerr *domain.CascadeError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, house.ID, cerr.HouseID)
	assert.Equal(t, []int64{hosts[0].ID}, cerr.FailedIDs("host"))
	assert.Equal(t, []int64{alarms[0].ID, alarms[1].ID}, cerr.FailedIDs("alarm"))
	assert.True(t, errors.Is(err, errDBLocked))

	assert.Equal(t, []int64{hosts[1].ID}, result.DeletedHosts)
	assert.Equal(t, []int64{alarms[1].ID}, result.DeletedAlarms)
	assert.Equal(t, []string{alarms[1].Sound.ID}, result.OrphanedAssets)

	// Non-failing work still happened, including the house itself.
	gone, err := h.houses.FindByID(ctx, house.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	survivor, err := h.alarms.FindByID(ctx, alarms[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, survivor)
	assert.Equal(t, []string{alarms[0].Sound.ID, alarms[1].Sound.ID}, h.assets.liveIDs())

	assert.Equal(t, []reconcile.Kind{
		reconcile.CascadeFailure,
		reconcile.CascadeFailure,
		reconcile.OrphanedAsset,
	}, h.reports.kinds())
}

func TestCascadeHouseImageFailureIsReported(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, _, _ := seedFullHouse(t, h)
	h.assets.failDelete[house.Image.ID] = true

	result, err := h.houseSvc.Delete(ctx, house.ID)

	var cerr *domain.CascadeError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []int64{house.ID}, cerr.FailedIDs("house"))
	assert.Equal(t, []string{house.Image.ID}, result.OrphanedAssets)
	gone, err := h.houses.FindByID(ctx, house.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCascadeHouseRemoveFailureKeepsImage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	house, _, _ := seedFullHouse(t, h)
	h.houses.removeErr = errDBLocked

	_, err := h.houseSvc.Delete(ctx, house.ID)

	var cerr *domain.CascadeError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, errDBLocked)
	assert.Empty(t, cerr.Failures)
	assert.Equal(t, []string{house.Image.ID}, h.assets.liveIDs())
}

func TestCascadeMissingHouse(t *testing.T) {
	h := newHarness(t)
	_, err := h.houseSvc.Delete(context.Background(), 31)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "house", nf.Entity)
}
