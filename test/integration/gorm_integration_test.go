package integration

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/model"
	"kaleem-livechat/internal/repository/contract"
	"kaleem-livechat/internal/repository/implementation"
	"kaleem-livechat/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormChatRepositories(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, database.Ping(context.Background(), db))
	require.NoError(t, db.AutoMigrate(&model.ChatSession{}, &model.ChatMessage{}))

	sessions := implementation.NewChatSessionRepository(db)
	messages := implementation.NewChatMessageRepository(db)
	ctx := context.Background()

	sessionID := "it-" + uuid.NewString()
	t.Cleanup(func() {
		db.Unscoped().Where("chat_session_id = ?", sessionID).Delete(&model.ChatMessage{})
		db.Unscoped().Where("id = ?", sessionID).Delete(&model.ChatSession{})
	})

	t.Run("FindOrCreate is idempotent", func(t *testing.T) {
		first, err := sessions.FindOrCreate(ctx, &entity.ChatSession{Id: sessionID, Metadata: map[string]interface{}{"page": "/pricing"}})
		require.NoError(t, err)
		second, err := sessions.FindOrCreate(ctx, &entity.ChatSession{Id: sessionID})
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
		assert.Equal(t, "/pricing", second.Metadata["page"])

		missing, err := sessions.FindOne(ctx, "it-missing-"+uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Concurrent appends get dense sequence numbers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := messages.Append(ctx, &entity.ChatMessage{ChatSessionId: sessionID, Role: constant.ChatMessageRoleUser, Chat: "hi"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		all, err := messages.FindBySession(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, all, 10)
		for i, m := range all {
			assert.Equal(t, i, m.Seq)
		}
	})

	t.Run("Rating a bot message", func(t *testing.T) {
		bot := &entity.ChatMessage{
			ChatSessionId: sessionID,
			Role:          constant.ChatMessageRoleBot,
			Chat:          "Our plans start at $19/mo.",
			Sources:       []map[string]interface{}{{"title": "Pricing", "ref": "faq"}},
		}
		require.NoError(t, messages.Append(ctx, bot))
		assert.Equal(t, 10, bot.Seq)

		require.NoError(t, messages.UpdateRating(ctx, bot.Id, constant.ChatRatingDown, "too expensive", time.Now()))

		stored, err := messages.FindBySeq(ctx, sessionID, bot.Seq)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.NotNil(t, stored.Rating)
		assert.Equal(t, constant.ChatRatingDown, *stored.Rating)
		assert.Equal(t, "too expensive", stored.Feedback)
		assert.Equal(t, "Pricing", stored.Sources[0]["title"])

		err = messages.UpdateRating(ctx, uuid.New(), constant.ChatRatingUp, "", time.Now())
		assert.ErrorIs(t, err, contract.ErrRecordNotFound)
	})

	t.Run("FindRecent returns the newest messages in order", func(t *testing.T) {
		recent, err := messages.FindRecent(ctx, sessionID, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, []int{8, 9, 10}, []int{recent[0].Seq, recent[1].Seq, recent[2].Seq})
	})
}
