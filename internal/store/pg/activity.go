package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"listencheck.org/internal/audit"
)

type activityStore Store

func (s *activityStore) Append(ctx context.Context, e *audit.Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into activity_logs (id, user_id, action, category, status, metadata, ip_address, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.UserID, e.Action, e.Category, e.Status, meta, e.IPAddress, e.UserAgent, e.CreatedAt)
	return err
}

func (s *activityStore) List(ctx context.Context, f audit.Filter) ([]*audit.Entry, int, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Action != "" {
		add("action like $%d", "%"+f.Action+"%")
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	where := ""
	if len(conds) > 0 {
		where = " where " + strings.Join(conds, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from activity_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select id, user_id, action, category, status, metadata, ip_address, user_agent, created_at
		from activity_logs%s
		order by created_at desc
		limit $%d offset $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Category, &e.Status, &meta, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Metadata = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}

func (s *activityStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select distinct category from activity_logs order by category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
