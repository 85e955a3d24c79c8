package database

import (
	"context"
	"fmt"
)

// schema contains the DDL for all application tables. Statements are
// idempotent so Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		role VARCHAR(20) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		state VARCHAR(50),
		verification_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		blocked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		street VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL DEFAULT '',
		state VARCHAR(50) NOT NULL DEFAULT '',
		zip VARCHAR(20) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_by UUID NOT NULL REFERENCES users(id),
		seller_id UUID REFERENCES users(id),
		agent_id UUID REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_agent ON properties(agent_id)`,
	`CREATE TABLE IF NOT EXISTS agent_leads (
		id UUID PRIMARY KEY,
		property_id UUID NOT NULL REFERENCES properties(id),
		agent_id UUID NOT NULL REFERENCES users(id),
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		rank INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_leads_property ON agent_leads(property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_leads_agent ON agent_leads(agent_id)`,
	`CREATE TABLE IF NOT EXISTS viewing_requests (
		id UUID PRIMARY KEY,
		property_id UUID NOT NULL REFERENCES properties(id),
		buyer_id UUID NOT NULL REFERENCES users(id),
		buyer_agent_id UUID REFERENCES users(id),
		seller_agent_id UUID REFERENCES users(id),
		requested_start TIMESTAMPTZ NOT NULL,
		requested_end TIMESTAMPTZ NOT NULL,
		confirmed_start TIMESTAMPTZ,
		confirmed_end TIMESTAMPTZ,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		seller_agent_approval VARCHAR(20) NOT NULL DEFAULT 'pending',
		seller_agent_approval_source VARCHAR(50),
		buyer_agent_approval VARCHAR(20) NOT NULL DEFAULT 'pending',
		buyer_agent_approval_source VARCHAR(50),
		note TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_viewing_requests_property ON viewing_requests(property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_viewing_requests_buyer ON viewing_requests(buyer_id)`,
	`CREATE TABLE IF NOT EXISTS agreements (
		id UUID PRIMARY KEY,
		type VARCHAR(30) NOT NULL,
		property_id UUID REFERENCES properties(id),
		buyer_id UUID REFERENCES users(id),
		agent_id UUID NOT NULL REFERENCES users(id),
		status VARCHAR(30) NOT NULL DEFAULT 'draft',
		buyer_signature TEXT,
		agent_signature TEXT,
		seller_signature TEXT,
		document_ref VARCHAR(255),
		edited_document BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_property_type ON agreements(property_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_buyer_agent ON agreements(buyer_id, agent_id)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id UUID PRIMARY KEY,
		property_id UUID NOT NULL,
		actor_id UUID NOT NULL,
		activity VARCHAR(100) NOT NULL,
		detail JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_log_property ON activity_log(property_id)`,
}

// Migrate creates the application schema if it does not exist yet.
func (db *Database) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
