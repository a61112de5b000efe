//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecrwatch/internal/audit"
)

const testServiceARN = "arn:aws:apprunner:us-east-1:123456789012:service/api/0123456789abcdef"

func TestAuditRepository_RecordAndList(t *testing.T) {
	infra := SetupTestInfra(t, true, false)

	ctx := context.Background()
	repo := audit.NewRepository(infra.PostgresDB)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Record(ctx, audit.Record{
		EventID:     "evt-1",
		Repository:  "api",
		ImageTag:    "1.2.3",
		ServiceARN:  testServiceARN,
		State:       "UPDATE",
		Action:      "update",
		Image:       "123456789012.dkr.ecr.us-east-1.amazonaws.com/api:1.2.3",
		OperationID: "op-1",
		RetryCount:  1,
		CreatedAt:   base,
	}))
	require.NoError(t, repo.Record(ctx, audit.Record{
		EventID:    "evt-2",
		Repository: "api",
		ImageTag:   "1.2.4",
		ServiceARN: testServiceARN,
		State:      "RETRY",
		Action:     "retry",
		RetryCount: 1,
		CreatedAt:  base.Add(time.Second),
	}))
	require.NoError(t, repo.Record(ctx, audit.Record{
		EventID:    "evt-3",
		Repository: "web",
		ImageTag:   "2.0.0",
		ServiceARN: "arn:aws:apprunner:us-east-1:123456789012:service/web/fedcba9876543210",
		State:      "DEPLOY",
		Action:     "deploy",
		Error:      "AccessDeniedException: denied",
		CreatedAt:  base.Add(2 * time.Second),
	}))

	all, err := repo.List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "evt-3", all[0].EventID, "newest first")
	assert.Equal(t, "AccessDeniedException: denied", all[0].Error)
	assert.NotEmpty(t, all[0].ID)

	byService, err := repo.List(ctx, audit.Filter{ServiceARN: testServiceARN})
	require.NoError(t, err)
	require.Len(t, byService, 2)
	assert.Equal(t, "evt-2", byService[0].EventID)
	assert.Equal(t, "op-1", byService[1].OperationID)
	assert.Equal(t, "1.2.3", byService[1].ImageTag)

	limited, err := repo.List(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAuditMigrate_Idempotent(t *testing.T) {
	infra := SetupTestInfra(t, true, false)

	assert.NoError(t, audit.Migrate(infra.PostgresDB))
}
