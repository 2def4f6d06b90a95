package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"

	"gcd-backend/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to connect to DB:", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			dispatch_handle VARCHAR(64),
			min_cpm DOUBLE,
			min_flat_rate DOUBLE,
			auto_negotiate BOOLEAN DEFAULT FALSE,
			review_before_send BOOLEAN DEFAULT FALSE,
			notify_on_decline BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS loads (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			ref_id VARCHAR(64) NOT NULL,
			origin VARCHAR(255) NOT NULL,
			destination VARCHAR(255) NOT NULL,
			mc_number VARCHAR(32),
			source_platform VARCHAR(64),
			price VARCHAR(32) COMMENT 'Informational, raw text'
		)`,
		`CREATE TABLE IF NOT EXISTS negotiations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			load_id BIGINT NOT NULL,
			driver_id BIGINT NOT NULL,
			broker_mc_number VARCHAR(32) NOT NULL DEFAULT '',
			broker_email VARCHAR(255),
			status VARCHAR(32) NOT NULL DEFAULT 'ACTIVE',
			current_offer DOUBLE,
			distance_miles DOUBLE NOT NULL DEFAULT 0,
			rate_con_path VARCHAR(512),
			pending_review_subject TEXT,
			pending_review_body TEXT,
			pending_review_action VARCHAR(32),
			pending_review_price DOUBLE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (load_id) REFERENCES loads(id) ON DELETE CASCADE,
			FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id CHAR(26) PRIMARY KEY COMMENT 'ULID',
			negotiation_id BIGINT NOT NULL,
			sender VARCHAR(16) NOT NULL COMMENT 'Broker, Driver, System',
			body TEXT NOT NULL,
			is_read BOOLEAN DEFAULT FALSE,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (negotiation_id) REFERENCES negotiations(id) ON DELETE CASCADE,
			INDEX idx_messages_negotiation (negotiation_id)
		)`,
		`CREATE TABLE IF NOT EXISTS webwise_broker_emails (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			mc_number VARCHAR(32) NOT NULL,
			email VARCHAR(255) NOT NULL,
			source VARCHAR(64),
			confidence DOUBLE,
			INDEX idx_broker_emails_mc (mc_number)
		)`,
	}

	for _, q := range queries {
		_, err := db.Exec(q)
		if err != nil {
			log.Printf("Error executing query: %s\nError: %v\n", q, err)
			// Continue even if error (e.g. table or index already exists)
		} else {
			fmt.Println("Executed successfully:", q[:30], "...")
		}
	}
	fmt.Println("Migration completed.")
}
