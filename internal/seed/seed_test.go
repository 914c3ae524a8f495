package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository/memory"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

func TestSeedDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	services := service.NewServices(&service.ServiceDeps{Repos: memory.NewRepositories(store)})

	require.NoError(t, SeedData(ctx, services))
	require.NoError(t, SeedData(ctx, services))

	assert.Equal(t, 1, store.Count(memory.TableGroups))
	assert.Equal(t, 1, store.Count(memory.TableOrders))
	assert.Equal(t, 3, store.Count(memory.TableCards))
	assert.Equal(t, 2, store.Count(memory.TableMessages))
}
