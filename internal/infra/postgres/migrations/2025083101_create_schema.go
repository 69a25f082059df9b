package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_schema.sql
var createSchemaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS player_answers;
				DROP TABLE IF EXISTS matches;
				DROP TABLE IF EXISTS matchmaking_queue;
				DROP TABLE IF EXISTS answers;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS quizzes;
				DROP TABLE IF EXISTS users;
				DROP TYPE IF EXISTS match_status;
				DROP TYPE IF EXISTS matchmaking_status;
			`)
			return err
		},
	)
}
