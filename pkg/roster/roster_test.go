package roster

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
)

func TestListOnDutySortedAndFiltered(t *testing.T) {
	r := NewStaticRoster([]models.Responder{
		{ID: "nurse-2", Role: models.RoleNurse, OnDuty: true},
		{ID: "nurse-1", Role: models.RoleNurse, OnDuty: true},
		{ID: "doc-1", Role: models.RoleDoctor, OnDuty: false},
	})

	onDuty, err := r.ListOnDuty(context.Background())
	require.NoError(t, err)
	require.Len(t, onDuty, 2)
	assert.Equal(t, "nurse-1", onDuty[0].ID)
	assert.Equal(t, "nurse-2", onDuty[1].ID)
}

func TestFindByIDUnknownReturnsNil(t *testing.T) {
	r := NewStaticRoster(nil)

	responder, err := r.FindByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, responder)
}

func TestAdjustLoadNeverNegative(t *testing.T) {
	r := NewStaticRoster([]models.Responder{{ID: "nurse-1", Role: models.RoleNurse, OnDuty: true}})

	r.AdjustLoad("nurse-1", -5)
	responder, err := r.FindByID(context.Background(), "nurse-1")
	require.NoError(t, err)
	assert.Equal(t, 0, responder.Load)

	r.AdjustLoad("ghost", 1) // unknown ids are ignored
}

func TestAdjustLoadConcurrent(t *testing.T) {
	r := NewStaticRoster([]models.Responder{{ID: "nurse-1", Role: models.RoleNurse, OnDuty: true}})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.AdjustLoad("nurse-1", 1)
		}()
		go func() {
			defer wg.Done()
			r.AdjustLoad("nurse-1", 1)
		}()
	}
	wg.Wait()

	responder, err := r.FindByID(context.Background(), "nurse-1")
	require.NoError(t, err)
	assert.Equal(t, 200, responder.Load)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	r := NewStaticRoster([]models.Responder{{ID: "nurse-1", Role: models.RoleNurse, OnDuty: true}})

	snap, err := r.FindByID(context.Background(), "nurse-1")
	require.NoError(t, err)
	snap.OnDuty = false
	snap.Load = 99

	fresh, err := r.FindByID(context.Background(), "nurse-1")
	require.NoError(t, err)
	assert.True(t, fresh.OnDuty)
	assert.Equal(t, 0, fresh.Load)
}

func TestSetOnDuty(t *testing.T) {
	r := NewStaticRoster([]models.Responder{{ID: "nurse-1", Role: models.RoleNurse, OnDuty: true}})

	r.SetOnDuty("nurse-1", false)
	onDuty, err := r.ListOnDuty(context.Background())
	require.NoError(t, err)
	assert.Empty(t, onDuty)
}
