package main

import (
	"flag"
	"log"
	"os"

	"kaleem-livechat/internal/model"
	"kaleem-livechat/pkg/database"

	"github.com/joho/godotenv"
)

// messageSeqIndex must exist for per-session message order to be unique.
const messageSeqIndex = "idx_chat_messages_session_seq"

func main() {
	verbose := flag.Bool("verbose", false, "log every SQL statement")
	flag.Parse()

	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, *verbose)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Chat schema. Messages reference sessions with ON DELETE CASCADE.
	log.Println("Starting chat schema migration...")
	if err := db.AutoMigrate(&model.ChatSession{}, &model.ChatMessage{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Verify
	if !db.Migrator().HasIndex(&model.ChatMessage{}, messageSeqIndex) {
		log.Fatalf("Error: index %s is missing after migration", messageSeqIndex)
	}

	var sessions, messages int64
	db.Model(&model.ChatSession{}).Count(&sessions)
	db.Model(&model.ChatMessage{}).Count(&messages)
	log.Printf("✅ Migration completed (%d sessions, %d messages)", sessions, messages)
}
