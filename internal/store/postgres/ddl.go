package postgres

// Schema is applied by EnsureSchema at startup. Statements are idempotent so
// repeated application in dev and test environments is safe; production
// deployments run the same DDL through migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS teams (
    team_id         text PRIMARY KEY,
    name            text NOT NULL,
    owner_id        text NOT NULL,
    members         jsonb NOT NULL DEFAULT '[]',
    invited_members jsonb NOT NULL DEFAULT '[]',
    version         bigint NOT NULL DEFAULT 1,
    creation_time   timestamptz NOT NULL DEFAULT now(),
    update_time     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS items (
    item_id       text PRIMARY KEY,
    kind          text NOT NULL,
    created_by    text NOT NULL,
    team_id       text,
    visibility    text NOT NULL DEFAULT 'private',
    collaborators jsonb NOT NULL DEFAULT '[]',
    shared_with   jsonb NOT NULL DEFAULT '[]',
    body          jsonb NOT NULL DEFAULT '{}',
    version       bigint NOT NULL DEFAULT 1,
    creation_time timestamptz NOT NULL DEFAULT now(),
    update_time   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS items_kind_created_by_idx ON items (kind, created_by);
CREATE INDEX IF NOT EXISTS items_kind_team_idx ON items (kind, team_id) WHERE team_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS items_collaborators_gin ON items USING gin (collaborators jsonb_path_ops);
CREATE INDEX IF NOT EXISTS items_shared_with_gin ON items USING gin (shared_with jsonb_path_ops);

CREATE TABLE IF NOT EXISTS notifications (
    notification_id text PRIMARY KEY,
    recipient       text NOT NULL,
    type            text NOT NULL,
    title           text NOT NULL,
    message         text NOT NULL,
    data            jsonb NOT NULL DEFAULT '{}',
    is_read         boolean NOT NULL DEFAULT false,
    creation_time   timestamptz NOT NULL DEFAULT now(),
    read_at         timestamptz
);

CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (recipient, is_read, creation_time DESC);

CREATE TABLE IF NOT EXISTS outbox (
    id              bigserial PRIMARY KEY,
    aggregate_id    text NOT NULL,
    op              text NOT NULL,
    payload         jsonb NOT NULL,
    status          text NOT NULL DEFAULT 'pending',
    attempt_count   int NOT NULL DEFAULT 0,
    next_attempt_at timestamptz NOT NULL DEFAULT now(),
    creation_time   timestamptz NOT NULL DEFAULT now(),
    update_time     timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS outbox_ready_idx ON outbox (next_attempt_at) WHERE status = 'pending';
`
