package db

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		points INT NOT NULL DEFAULT 0,
		total_reports INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS workflow_results (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NULL,
		confidence DOUBLE NOT NULL DEFAULT 0,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		label VARCHAR(128) NOT NULL DEFAULT '',
		satellite_vegetation_change DOUBLE NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'completed',
		points_earned INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_results_user FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS points_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		points_earned INT NOT NULL,
		points_type VARCHAR(32) NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		report_id BIGINT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_history_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_history_report FOREIGN KEY (report_id) REFERENCES workflow_results (id)
	)`,
}

// InitializeSchema creates the required tables when they do not exist yet.
func InitializeSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}
	log.Info("Database schema initialized")
	return nil
}
