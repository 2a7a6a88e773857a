package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/haventeam/haven/internal/model"
	"github.com/haventeam/haven/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema applies the idempotent DDL. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Items() store.Items                 { return &items{db: s.db} }
func (s *pgStore) Teams() store.Teams                 { return &teams{db: s.db} }
func (s *pgStore) Notifications() store.Notifications { return &notifications{db: s.db} }

// itemBody is the jsonb content column; access metadata lives in real columns
// so the visibility predicate can use them.
type itemBody struct {
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Comments    []model.Comment   `json:"comments,omitempty"`
	Assignee    *string           `json:"assignee,omitempty"`
	Status      *string           `json:"status,omitempty"`
	Watchers    []string          `json:"watchers,omitempty"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
	Milestones  []model.Milestone `json:"milestones,omitempty"`
	URL         *string           `json:"url,omitempty"`
}

func encodeBody(it *model.Item) ([]byte, error) {
	return json.Marshal(itemBody{
		Title:       it.Title,
		Description: it.Description,
		Tags:        it.Tags,
		Comments:    it.Comments,
		Assignee:    it.Assignee,
		Status:      it.Status,
		Watchers:    it.Watchers,
		DueDate:     it.DueDate,
		Milestones:  it.Milestones,
		URL:         it.URL,
	})
}

func decodeBody(raw []byte, it *model.Item) error {
	var b itemBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return err
	}
	it.Title = b.Title
	it.Description = b.Description
	it.Tags = b.Tags
	it.Comments = b.Comments
	it.Assignee = b.Assignee
	it.Status = b.Status
	it.Watchers = b.Watchers
	it.DueDate = b.DueDate
	it.Milestones = b.Milestones
	it.URL = b.URL
	return nil
}

// --- Items ---

type items struct{ db *sql.DB }

func (s *items) Create(ctx context.Context, it *model.Item, events []model.Event) (*model.Item, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id := it.ItemID
	if id == "" {
		id = uuid.New().String()
	}
	body, err := encodeBody(it)
	if err != nil {
		return nil, err
	}
	collab, _ := json.Marshal(emptyIfNilCollab(it.Collaborators))
	shares, _ := json.Marshal(emptyIfNilShares(it.SharedWith))

	var created, updated time.Time
	row := tx.QueryRowContext(ctx, `
        INSERT INTO items (item_id, kind, created_by, team_id, visibility, collaborators, shared_with, body)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING creation_time, update_time
    `, id, string(it.Kind), it.CreatedBy, it.TeamID, string(it.Visibility), collab, shares, body)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}
	for _, ev := range events {
		if err := writeOutbox(ctx, tx, id, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *it
	out.ItemID = id
	out.Version = 1
	out.CreationTime = created
	out.UpdateTime = updated
	return &out, nil
}

const itemColumns = `item_id, kind, created_by, team_id, visibility, collaborators, shared_with, body, version, creation_time, update_time`

func scanItem(sc interface{ Scan(...interface{}) error }) (*model.Item, error) {
	var it model.Item
	var kind, visibility string
	var collab, shares, body []byte
	if err := sc.Scan(&it.ItemID, &kind, &it.CreatedBy, &it.TeamID, &visibility,
		&collab, &shares, &body, &it.Version, &it.CreationTime, &it.UpdateTime); err != nil {
		return nil, err
	}
	it.Kind = model.Kind(kind)
	it.Visibility = model.Visibility(visibility)
	if err := json.Unmarshal(collab, &it.Collaborators); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shares, &it.SharedWith); err != nil {
		return nil, err
	}
	if err := decodeBody(body, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *items) Get(ctx context.Context, kind model.Kind, itemID string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+itemColumns+` FROM items WHERE kind=$1 AND item_id=$2
    `, string(kind), itemID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return it, err
}

// visiblePredicate is the single disjunctive grant query replacing the ad hoc
// per-entity $or filters: owner, collaborator entry, share entry, team
// membership, or public visibility.
const visiblePredicate = `(
       created_by = $2
    OR collaborators @> jsonb_build_array(jsonb_build_object('user', $2::text))
    OR shared_with  @> jsonb_build_array(jsonb_build_object('user', $2::text))
    OR visibility = 'public'
    OR (team_id IS NOT NULL AND team_id = ANY(string_to_array(NULLIF($3,''), ',')))
)`

func (s *items) ListVisible(ctx context.Context, principalID string, teamIDs []string, req model.ListItemsRequest) ([]*model.Item, int, error) {
	where := `kind=$1 AND ` + visiblePredicate
	args := []interface{}{string(req.Kind), principalID, strings.Join(teamIDs, ",")}
	if req.TeamID != nil {
		args = append(args, *req.TeamID)
		where += fmt.Sprintf(" AND team_id = $%d", len(args))
	}
	if req.Tag != nil {
		args = append(args, *req.Tag)
		where += fmt.Sprintf(" AND body->'tags' @> jsonb_build_array($%d::text)", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if req.Page > 1 {
		offset = (req.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT `+itemColumns+` FROM items WHERE %s ORDER BY creation_time DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (s *items) Update(ctx context.Context, it *model.Item, baseVersion int64, events []model.Event) (*model.Item, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	body, err := encodeBody(it)
	if err != nil {
		return nil, err
	}
	collab, _ := json.Marshal(emptyIfNilCollab(it.Collaborators))
	shares, _ := json.Marshal(emptyIfNilShares(it.SharedWith))

	var version int64
	var updated time.Time
	row := tx.QueryRowContext(ctx, `
        UPDATE items
        SET team_id=$4, visibility=$5, collaborators=$6, shared_with=$7, body=$8,
            version=version+1, update_time=now()
        WHERE kind=$1 AND item_id=$2 AND version=$3
        RETURNING version, update_time
    `, string(it.Kind), it.ItemID, baseVersion, it.TeamID, string(it.Visibility), collab, shares, body)
	if err := row.Scan(&version, &updated); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// Distinguish a stale base version from a missing row.
		var current int64
		probe := tx.QueryRowContext(ctx, `SELECT version FROM items WHERE kind=$1 AND item_id=$2`, string(it.Kind), it.ItemID)
		if perr := probe.Scan(&current); perr != nil {
			if errors.Is(perr, sql.ErrNoRows) {
				return nil, model.ErrNotFound
			}
			return nil, perr
		}
		return nil, fmt.Errorf("stale version %d (current %d): %w", baseVersion, current, model.ErrConflict)
	}

	for _, ev := range events {
		if err := writeOutbox(ctx, tx, it.ItemID, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *it
	out.Version = version
	out.UpdateTime = updated
	return &out, nil
}

func (s *items) Delete(ctx context.Context, kind model.Kind, itemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE kind=$1 AND item_id=$2`, string(kind), itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Teams ---

type teams struct{ db *sql.DB }

func (s *teams) Create(ctx context.Context, t *model.Team) (*model.Team, error) {
	id := t.TeamID
	if id == "" {
		id = uuid.New().String()
	}
	members, _ := json.Marshal(emptyIfNilMembers(t.Members))
	invited, _ := json.Marshal(emptyIfNilStrings(t.InvitedMembers))

	var created, updated time.Time
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO teams (team_id, name, owner_id, members, invited_members)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING creation_time, update_time
    `, id, t.Name, t.OwnerID, members, invited)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}
	out := *t
	out.TeamID = id
	out.Version = 1
	out.CreationTime = created
	out.UpdateTime = updated
	return &out, nil
}

func scanTeam(sc interface{ Scan(...interface{}) error }) (*model.Team, error) {
	var t model.Team
	var members, invited []byte
	if err := sc.Scan(&t.TeamID, &t.Name, &t.OwnerID, &members, &invited,
		&t.Version, &t.CreationTime, &t.UpdateTime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &t.Members); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(invited, &t.InvitedMembers); err != nil {
		return nil, err
	}
	return &t, nil
}

const teamColumns = `team_id, name, owner_id, members, invited_members, version, creation_time, update_time`

func (s *teams) Get(ctx context.Context, teamID string) (*model.Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE team_id=$1`, teamID)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return t, err
}

func (s *teams) ListByUser(ctx context.Context, userID string) ([]*model.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+teamColumns+` FROM teams
        WHERE owner_id = $1
           OR members @> jsonb_build_array(jsonb_build_object('user', $1::text))
        ORDER BY creation_time DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *teams) Update(ctx context.Context, t *model.Team, baseVersion int64, events []model.Event) (*model.Team, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	members, _ := json.Marshal(emptyIfNilMembers(t.Members))
	invited, _ := json.Marshal(emptyIfNilStrings(t.InvitedMembers))

	var version int64
	var updated time.Time
	row := tx.QueryRowContext(ctx, `
        UPDATE teams
        SET name=$3, members=$4, invited_members=$5, version=version+1, update_time=now()
        WHERE team_id=$1 AND version=$2
        RETURNING version, update_time
    `, t.TeamID, baseVersion, t.Name, members, invited)
	if err := row.Scan(&version, &updated); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		var current int64
		probe := tx.QueryRowContext(ctx, `SELECT version FROM teams WHERE team_id=$1`, t.TeamID)
		if perr := probe.Scan(&current); perr != nil {
			if errors.Is(perr, sql.ErrNoRows) {
				return nil, model.ErrNotFound
			}
			return nil, perr
		}
		return nil, fmt.Errorf("stale version %d (current %d): %w", baseVersion, current, model.ErrConflict)
	}

	for _, ev := range events {
		if err := writeOutbox(ctx, tx, t.TeamID, ev); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *t
	out.Version = version
	out.UpdateTime = updated
	return &out, nil
}

func (s *teams) Delete(ctx context.Context, teamID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE team_id=$1`, teamID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Notifications ---

type notifications struct{ db *sql.DB }

func (s *notifications) CreateBatch(ctx context.Context, ns []*model.Notification) ([]*model.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]*model.Notification, 0, len(ns))
	for _, n := range ns {
		id := n.NotificationID
		if id == "" {
			id = uuid.New().String()
		}
		data, err := json.Marshal(n.Data)
		if err != nil {
			return nil, err
		}
		var created time.Time
		row := tx.QueryRowContext(ctx, `
            INSERT INTO notifications (notification_id, recipient, type, title, message, data)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING creation_time
        `, id, n.Recipient, string(n.Type), n.Title, n.Message, data)
		if err := row.Scan(&created); err != nil {
			return nil, err
		}
		cp := *n
		cp.NotificationID = id
		cp.CreationTime = created
		out = append(out, &cp)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *notifications) List(ctx context.Context, req model.ListNotificationsRequest) ([]*model.Notification, int, error) {
	where := `recipient = $1`
	args := []interface{}{req.Recipient}
	if req.UnreadOnly {
		where += ` AND is_read = false`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if req.Page > 1 {
		offset = (req.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
        SELECT notification_id, recipient, type, title, message, data, is_read, creation_time, read_at
        FROM notifications WHERE %s
        ORDER BY creation_time DESC LIMIT $%d OFFSET $%d
    `, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Notification
	for rows.Next() {
		var n model.Notification
		var typ string
		var data []byte
		if err := rows.Scan(&n.NotificationID, &n.Recipient, &typ, &n.Title, &n.Message,
			&data, &n.IsRead, &n.CreationTime, &n.ReadAt); err != nil {
			return nil, 0, err
		}
		n.Type = model.EventType(typ)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, 0, err
		}
		out = append(out, &n)
	}
	return out, total, rows.Err()
}

func (s *notifications) CountUnread(ctx context.Context, recipient string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE recipient=$1 AND is_read=false`, recipient).Scan(&n)
	return n, err
}

func (s *notifications) MarkRead(ctx context.Context, recipient string, ids []string, all bool, at time.Time) (int, error) {
	query := `UPDATE notifications SET is_read=true, read_at=$2 WHERE recipient=$1 AND is_read=false`
	args := []interface{}{recipient, at}
	if !all {
		args = append(args, strings.Join(ids, ","))
		query += ` AND notification_id = ANY(string_to_array($3, ','))`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *notifications) Delete(ctx context.Context, recipient string, ids []string, all bool) (int, error) {
	query := `DELETE FROM notifications WHERE recipient=$1`
	args := []interface{}{recipient}
	if !all {
		args = append(args, strings.Join(ids, ","))
		query += ` AND notification_id = ANY(string_to_array($2, ','))`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- helpers ---

func writeOutbox(ctx context.Context, tx *sql.Tx, aggregateID string, ev model.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO outbox (aggregate_id, op, payload) VALUES ($1,$2,$3)`,
		aggregateID, string(ev.Type), b)
	return err
}

func emptyIfNilCollab(v []model.Collaborator) []model.Collaborator {
	if v == nil {
		return []model.Collaborator{}
	}
	return v
}

func emptyIfNilShares(v []model.Share) []model.Share {
	if v == nil {
		return []model.Share{}
	}
	return v
}

func emptyIfNilMembers(v []model.TeamMember) []model.TeamMember {
	if v == nil {
		return []model.TeamMember{}
	}
	return v
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
