package repository

// Schema definitions for the Egret database.
// Compatible with both SQLite and PostgreSQL.

const schemaClaims = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    member_name TEXT NOT NULL,
    treatment_date TEXT NOT NULL,
    claim_amount REAL NOT NULL,
    hospital TEXT,
    status TEXT NOT NULL,
    request TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_tenant ON claims(tenant_id);
CREATE INDEX IF NOT EXISTS idx_claims_member ON claims(tenant_id, member_id);
CREATE INDEX IF NOT EXISTS idx_claims_member_date ON claims(tenant_id, member_id, treatment_date);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(tenant_id, status);
`

const schemaAdjudications = `
CREATE TABLE IF NOT EXISTS adjudications (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    claim_id TEXT NOT NULL,
    decision TEXT NOT NULL,
    approved_amount REAL NOT NULL,
    confidence REAL NOT NULL,
    result TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_adjudications_tenant ON adjudications(tenant_id);
CREATE INDEX IF NOT EXISTS idx_adjudications_claim ON adjudications(tenant_id, claim_id);
CREATE INDEX IF NOT EXISTS idx_adjudications_decision ON adjudications(tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_adjudications_created ON adjudications(tenant_id, created_at);
`

const schemaAppeals = `
CREATE TABLE IF NOT EXISTS appeals (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    claim_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appeals_tenant ON appeals(tenant_id);
CREATE INDEX IF NOT EXISTS idx_appeals_claim ON appeals(tenant_id, claim_id);
CREATE INDEX IF NOT EXISTS idx_appeals_status ON appeals(tenant_id, status);
`

// schemaFraudRules holds the versioned fraud indicator table.
// Rules are soft-deleted by setting enabled = 0.
const schemaFraudRules = `
CREATE TABLE IF NOT EXISTS fraud_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    score REAL NOT NULL DEFAULT 0.0,
    flag TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_fraud_rules_tenant ON fraud_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_fraud_rules_enabled ON fraud_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaClaims,
		schemaAdjudications,
		schemaAppeals,
		schemaFraudRules,
	}
}
