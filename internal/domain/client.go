package domain

import "time"

// ============================================================
// Clients
// ============================================================

// Client is a person the book lends money to.
// DocumentID is the immutable national identity document and is
// unique across the book.
type Client struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LastName   string    `json:"last_name"`
	DocumentID string    `json:"document_id"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName returns "Name LastName" for display.
func (c *Client) FullName() string {
	return c.Name + " " + c.LastName
}

// ClientRequest is the create/update payload for a client.
type ClientRequest struct {
	Name       string `json:"name"`
	LastName   string `json:"last_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
}
