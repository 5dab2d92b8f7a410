package sqlstore

import (
	"context"
	"fmt"
)

// migration is one versioned schema step. Statements use portable type
// tokens that the dialect rewrites: {id}, {str}, {text}, {ts}, {real}.
type migration struct {
	version    string
	statements []string
}

// migrations run in order; each is applied once and recorded in schema_migrations.
// Append new steps, never edit applied ones.
var migrations = []migration{
	{
		version: "001_users_and_groups",
		statements: []string{
			`CREATE TABLE users (
				id               {id} PRIMARY KEY,
				google_id        {str} NOT NULL UNIQUE,
				email            {str} NOT NULL,
				name             {str} NOT NULL,
				avatar_url       {text} NOT NULL,
				theme_preference {str} NOT NULL,
				active_group_id  {id},
				created_at       {ts} NOT NULL,
				updated_at       {ts} NOT NULL
			)`,
			`CREATE TABLE menu_groups (
				id          {id} PRIMARY KEY,
				name        {str} NOT NULL,
				invite_code {str} NOT NULL UNIQUE,
				created_by  {id} NOT NULL REFERENCES users(id),
				created_at  {ts} NOT NULL
			)`,
			`CREATE TABLE group_members (
				group_id  {id} NOT NULL REFERENCES menu_groups(id) ON DELETE CASCADE,
				user_id   {id} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role      {str} NOT NULL,
				joined_at {ts} NOT NULL,
				PRIMARY KEY (group_id, user_id)
			)`,
			`CREATE INDEX idx_group_members_user ON group_members(user_id, joined_at)`,
		},
	},
	{
		version: "002_menu",
		statements: []string{
			`CREATE TABLE menu_items (
				id                {id} PRIMARY KEY,
				name              {str} NOT NULL,
				description       {text} NOT NULL,
				category          {str} NOT NULL,
				price             {real},
				image_url         {text} NOT NULL,
				contributor       {str} NOT NULL,
				prep_time_minutes INTEGER,
				cook_time_minutes INTEGER,
				servings          INTEGER,
				difficulty        {str} NOT NULL,
				cuisine_type      {str} NOT NULL,
				is_favorite       BOOLEAN NOT NULL,
				user_id           {id} NOT NULL REFERENCES users(id),
				group_id          {id} REFERENCES menu_groups(id) ON DELETE CASCADE,
				created_at        {ts} NOT NULL,
				updated_at        {ts} NOT NULL
			)`,
			`CREATE INDEX idx_menu_items_group ON menu_items(group_id, created_at)`,
			`CREATE INDEX idx_menu_items_user ON menu_items(user_id, created_at)`,
			`CREATE TABLE recipe_steps (
				id           {id} PRIMARY KEY,
				menu_item_id {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				step_number  INTEGER NOT NULL,
				instructions {text} NOT NULL
			)`,
			`CREATE INDEX idx_recipe_steps_item ON recipe_steps(menu_item_id, step_number)`,
			`CREATE TABLE ingredients (
				id       {id} PRIMARY KEY,
				name     {str} NOT NULL UNIQUE,
				category {str} NOT NULL
			)`,
			`CREATE TABLE menu_item_ingredients (
				id            {id} PRIMARY KEY,
				menu_item_id  {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				ingredient_id {id} NOT NULL REFERENCES ingredients(id),
				quantity      {real} NOT NULL,
				unit          {str} NOT NULL,
				notes         {text} NOT NULL
			)`,
			`CREATE INDEX idx_menu_item_ingredients_item ON menu_item_ingredients(menu_item_id)`,
			`CREATE TABLE tags (
				id   {id} PRIMARY KEY,
				name {str} NOT NULL UNIQUE
			)`,
			`CREATE TABLE menu_item_tags (
				menu_item_id {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				tag_id       {id} NOT NULL REFERENCES tags(id),
				PRIMARY KEY (menu_item_id, tag_id)
			)`,
			`CREATE TABLE ratings (
				id           {id} PRIMARY KEY,
				menu_item_id {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				user_id      {id} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				rating       INTEGER NOT NULL,
				review       {text} NOT NULL,
				created_at   {ts} NOT NULL,
				UNIQUE (menu_item_id, user_id)
			)`,
		},
	},
	{
		version: "003_meal_plans",
		statements: []string{
			`CREATE TABLE meal_plans (
				id           {id} PRIMARY KEY,
				user_id      {id} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				menu_item_id {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				planned_date {str} NOT NULL,
				meal_type    {str} NOT NULL,
				notes        {text} NOT NULL,
				completed    BOOLEAN NOT NULL,
				created_at   {ts} NOT NULL,
				updated_at   {ts} NOT NULL
			)`,
			`CREATE INDEX idx_meal_plans_user_date ON meal_plans(user_id, planned_date)`,
			`CREATE TABLE shopping_lists (
				id         {id} PRIMARY KEY,
				user_id    {id} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name       {str} NOT NULL,
				created_at {ts} NOT NULL
			)`,
			`CREATE TABLE shopping_list_items (
				id               {id} PRIMARY KEY,
				shopping_list_id {id} NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
				ingredient_id    {id} NOT NULL REFERENCES ingredients(id),
				quantity         {real} NOT NULL,
				unit             {str} NOT NULL,
				checked          BOOLEAN NOT NULL
			)`,
			`CREATE INDEX idx_shopping_list_items_list ON shopping_list_items(shopping_list_id)`,
		},
	},
	{
		version: "004_shared_links",
		statements: []string{
			`CREATE TABLE shared_links (
				id           {id} PRIMARY KEY,
				menu_item_id {id} NOT NULL REFERENCES menu_items(id) ON DELETE CASCADE,
				share_token  {str} NOT NULL UNIQUE,
				created_by   {id} REFERENCES users(id) ON DELETE SET NULL,
				created_at   {ts} NOT NULL,
				expires_at   {ts},
				view_count   INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_shared_links_item ON shared_links(menu_item_id)`,
		},
	},
}

// migrate applies every migration not yet recorded, each in its own
// transaction. MySQL commits DDL implicitly, so there a failed step can leave
// earlier statements of that step applied.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, db.dialect.MigrationsTableQuery()); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	types := db.dialect.Types()
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.version, err)
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, types.Replace(stmt)); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %s: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			db.dialect.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
			m.version, db.timestamp(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.version, err)
		}
	}
	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
