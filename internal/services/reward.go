package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

// RewardRule names a trigger and the amount each role receives when it fires.
type RewardRule struct {
	Name   string                     `yaml:"name"`
	Reason string                     `yaml:"reason"`
	Grants map[string]decimal.Decimal `yaml:"-"`
}

type rewardCatalogFile struct {
	Rules []struct {
		Name   string            `yaml:"name"`
		Reason string            `yaml:"reason"`
		Grants map[string]string `yaml:"grants"`
	} `yaml:"rules"`
}

type RewardCatalog map[string]RewardRule

// ParseRewardCatalog reads rules of the form:
//
//	rules:
//	  - name: first_attendance
//	    reason: first attendance
//	    grants:
//	      host: "30"
//	      attendee: "10"
func ParseRewardCatalog(raw []byte) (RewardCatalog, error) {
	var file rewardCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse reward catalog: %w", err)
	}
	out := make(RewardCatalog, len(file.Rules))
	for _, r := range file.Rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("reward rule without a name")
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("reward rule %q defined twice", name)
		}
		if len(r.Grants) == 0 {
			return nil, fmt.Errorf("reward rule %q has no grants", name)
		}
		rule := RewardRule{Name: name, Reason: strings.TrimSpace(r.Reason), Grants: map[string]decimal.Decimal{}}
		for role, amount := range r.Grants {
			d, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return nil, fmt.Errorf("reward rule %q role %q: %w", name, role, err)
			}
			if !d.IsPositive() {
				return nil, fmt.Errorf("reward rule %q role %q: amount must be positive", name, role)
			}
			rule.Grants[strings.TrimSpace(role)] = d
		}
		out[name] = rule
	}
	return out, nil
}

func LoadRewardCatalog(path string) (RewardCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward catalog: %w", err)
	}
	return ParseRewardCatalog(raw)
}

type TriggerRewardInput struct {
	Rule string
	// Subject identifies the triggering occurrence; the reward scope is Rule:Subject.
	Subject    string
	Recipients map[string]uuid.UUID
	Metadata   map[string]any
}

type RewardService interface {
	Rules() []RewardRule
	Trigger(ctx context.Context, in TriggerRewardInput) (domainagg.FireRewardResult, error)
}

type rewardService struct {
	log     *logger.Logger
	catalog RewardCatalog
	trigger domainagg.RewardAggregate
}

func NewRewardService(log *logger.Logger, catalog RewardCatalog, trigger domainagg.RewardAggregate) RewardService {
	if catalog == nil {
		catalog = RewardCatalog{}
	}
	return &rewardService{log: log.With("service", "RewardService"), catalog: catalog, trigger: trigger}
}

func (s *rewardService) Rules() []RewardRule {
	out := make([]RewardRule, 0, len(s.catalog))
	for _, r := range s.catalog {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Trigger grants the rule's roles that have a recipient. Roles the rule does
// not define are rejected.
func (s *rewardService) Trigger(ctx context.Context, in TriggerRewardInput) (domainagg.FireRewardResult, error) {
	const op = "Rewards.Trigger"
	rule, ok := s.catalog[strings.TrimSpace(in.Rule)]
	if !ok {
		return domainagg.FireRewardResult{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("unknown reward rule %q", in.Rule), nil)
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return domainagg.FireRewardResult{}, domainagg.NewError(domainagg.CodeValidation, op, "missing subject", nil)
	}

	roles := make([]string, 0, len(in.Recipients))
	for role := range in.Recipients {
		if _, ok := rule.Grants[role]; !ok {
			return domainagg.FireRewardResult{}, domainagg.NewError(domainagg.CodeValidation, op,
				fmt.Sprintf("rule %q has no role %q", rule.Name, role), nil)
		}
		roles = append(roles, role)
	}
	sort.Strings(roles)

	grants := make([]domainagg.RewardGrant, 0, len(roles))
	for _, role := range roles {
		grants = append(grants, domainagg.RewardGrant{
			Role:        role,
			RecipientID: in.Recipients[role],
			Amount:      rule.Grants[role],
			Reason:      rule.Reason,
		})
	}
	meta := map[string]any{"rule": rule.Name, "subject": subject}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	return s.trigger.Fire(ctx, domainagg.FireRewardInput{
		Scope:    rule.Name + ":" + subject,
		Grants:   grants,
		Metadata: meta,
	})
}
