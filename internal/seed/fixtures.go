package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/triage-service/internal/domain"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// UserFixture describes one account.
type UserFixture struct {
	Key      string      `yaml:"key"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     domain.Role `yaml:"role"`
}

// TicketFixture describes one ticket. Owner and AssignedTo refer to user keys.
type TicketFixture struct {
	Key           string              `yaml:"key"`
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	Owner         string              `yaml:"owner"`
	AssignedTo    string              `yaml:"assigned_to"`
	Status        domain.TicketStatus `yaml:"status"`
	InternalNotes string              `yaml:"internal_notes"`
}

// Fixtures is the full seed document.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Tickets []TicketFixture `yaml:"tickets"`
}

// LoadFixtures reads fixtures from path, or the embedded set when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading seed file: %w", err)
		}
		data = raw
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes and validates a fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed fixtures: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.Key == "" || u.Email == "" || u.Password == "" {
			return fmt.Errorf("user fixture %q: key, email and password are required", u.Key)
		}
		if users[u.Key] {
			return fmt.Errorf("duplicate user key %q", u.Key)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user fixture %q: unknown role %q", u.Key, u.Role)
		}
		users[u.Key] = true
	}

	for _, t := range f.Tickets {
		if t.Title == "" || t.Description == "" {
			return fmt.Errorf("ticket fixture %q: title and description are required", t.Key)
		}
		if !users[t.Owner] {
			return fmt.Errorf("ticket fixture %q: unknown owner %q", t.Key, t.Owner)
		}
		if t.AssignedTo != "" && !users[t.AssignedTo] {
			return fmt.Errorf("ticket fixture %q: unknown assignee %q", t.Key, t.AssignedTo)
		}
		switch t.Status {
		case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusClosed:
		case "":
		default:
			return fmt.Errorf("ticket fixture %q: unknown status %q", t.Key, t.Status)
		}
	}
	return nil
}
