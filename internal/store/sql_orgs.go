package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dotmac/internal/database"
)

func (s *Sql) scanOrganization(row rowScanner, extra ...any) (*Organization, error) {
	var org Organization
	var metadata string
	dest := append([]any{&org.Id, &org.Name, &org.Slug, &metadata, &org.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	org.Metadata = map[string]string{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &org.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata of organization[%s]: %w", org.Id, err)
		}
	}
	return &org, nil
}

// CreateOrganization inserts the organization and its owner membership in
// one transaction
func (s *Sql) CreateOrganization(ctx context.Context, org Organization, owner Member) error {
	fnSource := "store.Sql.CreateOrganization"
	metadata := org.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encodedMetadata, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%s: failed to encode metadata: %w", fnSource, err)
	}
	return s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		input := s.input(
			fnSource,
			`INSERT INTO organizations (id, name, slug, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
			org.Id,
			org.Name,
			org.Slug,
			string(encodedMetadata),
			org.CreatedAt.UTC(),
		)
		input.Db = tx
		input.RowsAffected = oneRowAffected
		if err := s.executeInsert(ctx, input); err != nil {
			return err
		}
		return s.addMember(ctx, tx, fnSource, owner)
	})
}

func (s *Sql) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var output *Organization
	input := s.input("store.Sql.GetOrganization", `SELECT id, name, slug, metadata, created_at FROM organizations WHERE id = ?`, id)
	input.ProcessRow = func(row *sql.Row) (err error) {
		output, err = s.scanOrganization(row)
		return err
	}
	if err := s.executeSelect(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) DeleteOrganization(ctx context.Context, id string) error {
	fnSource := "store.Sql.DeleteOrganization"
	return s.inTx(ctx, fnSource, func(tx *sql.Tx) error {
		membersInput := s.input(fnSource, `DELETE FROM members WHERE org_id = ?`, id)
		membersInput.Db = tx
		if _, err := s.executeDelete(ctx, membersInput); err != nil {
			return err
		}
		sessionsInput := s.input(fnSource, `UPDATE sessions SET active_org_id = NULL WHERE active_org_id = ?`, id)
		sessionsInput.Db = tx
		if _, err := s.executeUpdate(ctx, sessionsInput); err != nil {
			return err
		}
		input := s.input(fnSource, `DELETE FROM organizations WHERE id = ?`, id)
		input.Db = tx
		rowsAffected, err := s.executeDelete(ctx, input)
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%s: organization[%s]: %w", fnSource, id, ErrorNotFound)
		}
		return nil
	})
}

func (s *Sql) ListUserOrganizations(ctx context.Context, userId string) ([]MemberOrganization, error) {
	output := []MemberOrganization{}
	input := s.input(
		"store.Sql.ListUserOrganizations",
		`SELECT o.id, o.name, o.slug, o.metadata, o.created_at, m.`+database.QuoteIdentifier(s.dialect, "role")+`
		FROM organizations o JOIN members m ON m.org_id = o.id
		WHERE m.user_id = ? ORDER BY o.created_at`,
		userId,
	)
	input.ProcessRows = func(rows *sql.Rows) error {
		var role string
		org, err := s.scanOrganization(rows, &role)
		if err != nil {
			return err
		}
		output = append(output, MemberOrganization{Organization: *org, Role: role})
		return nil
	}
	if err := s.executeSelects(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) addMember(ctx context.Context, db querier, fnSource string, member Member) error {
	input := s.input(
		fnSource,
		`INSERT INTO members (org_id, user_id, `+database.QuoteIdentifier(s.dialect, "role")+`, created_at) VALUES (?, ?, ?, ?)`,
		member.OrgId,
		member.UserId,
		member.Role,
		member.CreatedAt.UTC(),
	)
	input.Db = db
	input.RowsAffected = oneRowAffected
	return s.executeInsert(ctx, input)
}

func (s *Sql) AddMember(ctx context.Context, member Member) error {
	return s.addMember(ctx, s.db, "store.Sql.AddMember", member)
}

func (s *Sql) GetMember(ctx context.Context, orgId, userId string) (*Member, error) {
	var output Member
	input := s.input(
		"store.Sql.GetMember",
		`SELECT org_id, user_id, `+database.QuoteIdentifier(s.dialect, "role")+`, created_at FROM members WHERE org_id = ? AND user_id = ?`,
		orgId,
		userId,
	)
	input.ProcessRow = func(row *sql.Row) error {
		return row.Scan(&output.OrgId, &output.UserId, &output.Role, &output.CreatedAt)
	}
	if err := s.executeSelect(ctx, input); err != nil {
		return nil, err
	}
	return &output, nil
}

func (s *Sql) ListMembers(ctx context.Context, orgId string) ([]Member, error) {
	output := []Member{}
	input := s.input(
		"store.Sql.ListMembers",
		`SELECT org_id, user_id, `+database.QuoteIdentifier(s.dialect, "role")+`, created_at FROM members WHERE org_id = ? ORDER BY created_at`,
		orgId,
	)
	input.ProcessRows = func(rows *sql.Rows) error {
		var member Member
		if err := rows.Scan(&member.OrgId, &member.UserId, &member.Role, &member.CreatedAt); err != nil {
			return err
		}
		output = append(output, member)
		return nil
	}
	if err := s.executeSelects(ctx, input); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Sql) UpdateMemberRole(ctx context.Context, orgId, userId, role string) error {
	fnSource := "store.Sql.UpdateMemberRole"
	input := s.input(
		fnSource,
		`UPDATE members SET `+database.QuoteIdentifier(s.dialect, "role")+` = ? WHERE org_id = ? AND user_id = ?`,
		role,
		orgId,
		userId,
	)
	rowsAffected, err := s.executeUpdate(ctx, input)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: member[%s/%s]: %w", fnSource, orgId, userId, ErrorNotFound)
	}
	return nil
}

func (s *Sql) RemoveMember(ctx context.Context, orgId, userId string) error {
	fnSource := "store.Sql.RemoveMember"
	rowsAffected, err := s.executeDelete(ctx, s.input(fnSource, `DELETE FROM members WHERE org_id = ? AND user_id = ?`, orgId, userId))
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: member[%s/%s]: %w", fnSource, orgId, userId, ErrorNotFound)
	}
	return nil
}
