// Package access implements per-equipment access control: each user holds
// at most one rule per piece of equipment, and the gate answers the
// authorization questions the booking engine asks.
package access

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

// Rule is a user's standing on a piece of equipment. Rules are ordered:
// banned < pending < authorized < administrator.
type Rule string

const (
	RuleBanned        Rule = "banned"
	RulePending       Rule = "pending"
	RuleAuthorized    Rule = "authorized"
	RuleAdministrator Rule = "administrator"
)

// ParseRule returns the Rule named by s.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleBanned, RulePending, RuleAuthorized, RuleAdministrator:
		return Rule(s), nil
	}
	return "", fmt.Errorf("unknown access rule %q", s)
}

// Level returns the rule's position in the ordering.
func (r Rule) Level() int {
	switch r {
	case RulePending:
		return 1
	case RuleAuthorized:
		return 2
	case RuleAdministrator:
		return 3
	default:
		return 0
	}
}

// Entry is one user's rule on one piece of equipment.
type Entry struct {
	EquipmentID string    `json:"equipment_id"`
	User        string    `json:"user"`
	Rule        Rule      `json:"rule"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the persistence port for ACL entries. A missing entry means
// the user holds no rule at all.
type Store interface {
	GetRule(ctx context.Context, equipmentID, user string) (Rule, bool, error)
	SetRule(ctx context.Context, equipmentID, user string, rule Rule) error
	ListForEquipment(ctx context.Context, equipmentID string) ([]Entry, error)
	ListForUser(ctx context.Context, user string) ([]Entry, error)
}

// Gate answers the booking engine's authorization questions from the ACL
// store. Site administrators pass every check.
type Gate struct {
	store      Store
	siteAdmins map[string]bool
	log        *zap.Logger
}

func NewGate(store Store, siteAdmins []string, log *zap.Logger) *Gate {
	admins := make(map[string]bool, len(siteAdmins))
	for _, a := range siteAdmins {
		admins[a] = true
	}
	return &Gate{store: store, siteAdmins: admins, log: log}
}

// IsAuthorized reports whether the user may book the equipment.
func (g *Gate) IsAuthorized(ctx context.Context, user, equipmentID string) (bool, error) {
	if g.siteAdmins[user] {
		return true, nil
	}

	rule, ok, err := g.store.GetRule(ctx, equipmentID, user)
	if err != nil {
		return false, fmt.Errorf("looking up access rule: %w", err)
	}
	return ok && rule.Level() >= RuleAuthorized.Level(), nil
}

// IsAdministrator reports whether the user administers the equipment.
func (g *Gate) IsAdministrator(ctx context.Context, user, equipmentID string) (bool, error) {
	if g.siteAdmins[user] {
		return true, nil
	}

	rule, ok, err := g.store.GetRule(ctx, equipmentID, user)
	if err != nil {
		return false, fmt.Errorf("looking up access rule: %w", err)
	}
	return ok && rule == RuleAdministrator, nil
}

// RequestAccess records the user's interest in the equipment as a pending
// rule. A user who already holds any rule keeps it; in particular a ban
// cannot be washed away by re-requesting.
func (g *Gate) RequestAccess(ctx context.Context, user, equipmentID string) error {
	_, ok, err := g.store.GetRule(ctx, equipmentID, user)
	if err != nil {
		return fmt.Errorf("looking up access rule: %w", err)
	}
	if ok {
		return nil
	}

	if err := g.store.SetRule(ctx, equipmentID, user, RulePending); err != nil {
		return fmt.Errorf("recording access request: %w", err)
	}

	g.log.Info("access requested",
		zap.String("user", user),
		zap.String("equipment_id", equipmentID))
	return nil
}

// SetRule assigns a rule on behalf of an administrator of the equipment.
func (g *Gate) SetRule(ctx context.Context, admin, user, equipmentID string, rule Rule) error {
	ok, err := g.IsAdministrator(ctx, admin, equipmentID)
	if err != nil {
		return err
	}
	if !ok {
		return &booking.PermissionError{User: admin, EquipmentID: equipmentID, Admin: true}
	}

	if err := g.store.SetRule(ctx, equipmentID, user, rule); err != nil {
		return fmt.Errorf("setting access rule: %w", err)
	}

	g.log.Info("access rule set",
		zap.String("admin", admin),
		zap.String("user", user),
		zap.String("equipment_id", equipmentID),
		zap.String("rule", string(rule)))
	return nil
}

// ListForEquipment returns every rule held on the equipment, for the
// administrator views.
func (g *Gate) ListForEquipment(ctx context.Context, admin, equipmentID string) ([]Entry, error) {
	ok, err := g.IsAdministrator(ctx, admin, equipmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &booking.PermissionError{User: admin, EquipmentID: equipmentID, Admin: true}
	}
	return g.store.ListForEquipment(ctx, equipmentID)
}

// ListForUser returns every rule the user holds.
func (g *Gate) ListForUser(ctx context.Context, user string) ([]Entry, error) {
	return g.store.ListForUser(ctx, user)
}
