package postgres

import (
	"context"
	"fmt"

	"github.com/prestabook/prestabook/internal/domain"
)

const clientColumns = `id, name, last_name, document_id, phone, email, address, created_at, updated_at`

func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	return s.guard(ctx, "create_client", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO clients (`+clientColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			c.ID, c.Name, c.LastName, c.DocumentID, c.Phone, c.Email, c.Address,
			c.CreatedAt, c.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return &domain.ErrConflict{Message: fmt.Sprintf("client with document %s already exists", c.DocumentID)}
		}
		return err
	})
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	out := []domain.Client{}
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.LastName, &c.DocumentID,
			&c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var c domain.Client
	err := s.pool.QueryRow(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.LastName, &c.DocumentID,
		&c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	return &c, nil
}

func (s *Store) GetClientByDocument(ctx context.Context, documentID string) (*domain.Client, error) {
	var c domain.Client
	err := s.pool.QueryRow(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE document_id = $1`, documentID,
	).Scan(&c.ID, &c.Name, &c.LastName, &c.DocumentID,
		&c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "client", documentID)
	}
	return &c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c *domain.Client) error {
	return s.guard(ctx, "update_client", func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE clients
			SET name = $2, last_name = $3, phone = $4, email = $5, address = $6, updated_at = $7
			WHERE id = $1`,
			c.ID, c.Name, c.LastName, c.Phone, c.Email, c.Address, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "client", ID: c.ID}
		}
		return nil
	})
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	return s.guard(ctx, "delete_client", func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ErrNotFound{Resource: "client", ID: id}
		}
		return nil
	})
}
