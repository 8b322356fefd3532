// Seed adds 10,000 reminders to the database. Run from project root: go run ./scripts/seed
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"remindly/internal/database"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	db := database.InitDB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}

	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	const total = 10_000
	const batchSize = 500
	userID := "seed-user"
	day := time.Now().AddDate(0, 0, 1)
	start := time.Now()

	for batch := 0; batch < total/batchSize; batch++ {
		args := make([]interface{}, 0, batchSize*6)
		placeholders := make([]string, 0, batchSize)
		for i := 0; i < batchSize; i++ {
			n := batch*batchSize + i + 1
			placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,'medium','personal',NOW(),NOW())",
				6*i+1, 6*i+2, 6*i+3, 6*i+4, 6*i+5, 6*i+6))
			args = append(args,
				uuid.New().String(),
				userID,
				fmt.Sprintf("Reminder %d", n),
				fmt.Sprintf("Description for reminder %d", n),
				day.AddDate(0, 0, n%30).Format("2006-01-02"),
				fmt.Sprintf("%02d:%02d", n%24, n%60),
			)
		}
		q := `INSERT INTO reminders (id, user_id, title, description, date, time, priority, category, created_at, updated_at) VALUES ` +
			strings.Join(placeholders, ",")
		_, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\rInserted %d / %d", (batch+1)*batchSize, total)
	}

	fmt.Printf("\nDone: %d reminders in %v\n", total, time.Since(start))
}
