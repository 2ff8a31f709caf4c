package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/repository/specification"
	"leadpilot-be/internal/repository/unitofwork"
	"leadpilot-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.ConversationRepository())
	assert.NotNil(t, uow.MessageLogRepository())
	assert.NotNil(t, uow.FollowUpTaskRepository())
}

func TestFollowUpTaskRoundTrip(t *testing.T) {
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	key := "test-" + uuid.NewString()
	task := &entity.FollowUpTask{
		Id:              uuid.New(),
		ConversationKey: key,
		AttemptNumber:   1,
		Type:            "reengagement",
		ScheduledAt:     time.Now().Add(30 * time.Minute),
		Status:          entity.FollowUpPending,
		Metadata:        map[string]interface{}{"source": "integration-test"},
		CreatedAt:       time.Now(),
	}
	require.NoError(t, uow.FollowUpTaskRepository().Create(ctx, task))

	found, err := uow.FollowUpTaskRepository().FindOne(ctx,
		specification.ByConversationKey{Key: key},
		specification.ByStatus{Status: string(entity.FollowUpPending)},
	)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, task.Id, found.Id)
	assert.Equal(t, 1, found.AttemptNumber)
	assert.Equal(t, "integration-test", found.Metadata["source"])

	found.Status = entity.FollowUpCancelled
	require.NoError(t, uow.FollowUpTaskRepository().Update(ctx, found))

	count, err := uow.FollowUpTaskRepository().Count(ctx,
		specification.ByConversationKey{Key: key},
		specification.ByStatus{Status: string(entity.FollowUpPending)},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
