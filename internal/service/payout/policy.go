package payout

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

var ErrPolicyNotFound = errors.New("no payout policy for currency")

// Policy caps the total automatic payouts per currency per UTC day.
type Policy struct {
	Currency domain.Currency
	DailyCap decimal.Decimal
}

type policyFile struct {
	Currency string `yaml:"currency"`
	DailyCap string `yaml:"daily_cap"`
}

// LoadPolicies reads a YAML list of {currency, daily_cap} entries.
func LoadPolicies(path string) ([]Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadPolicies: open: %w", err)
	}
	defer f.Close()

	var entries []policyFile
	if err := yaml.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("LoadPolicies: decode: %w", err)
	}

	policies := make([]Policy, 0, len(entries))
	seen := make(map[domain.Currency]struct{}, len(entries))
	for _, e := range entries {
		cur := domain.Currency(e.Currency).Normalize()
		if cur == "" {
			return nil, fmt.Errorf("LoadPolicies: policy currency required")
		}
		if _, dup := seen[cur]; dup {
			return nil, fmt.Errorf("LoadPolicies: duplicate policy for %s", cur)
		}
		capAmount, err := decimal.NewFromString(strings.TrimSpace(e.DailyCap))
		if err != nil {
			return nil, fmt.Errorf("LoadPolicies: %s daily_cap: %w", cur, err)
		}
		if capAmount.IsNegative() {
			return nil, fmt.Errorf("LoadPolicies: %s daily_cap must be non-negative", cur)
		}
		seen[cur] = struct{}{}
		policies = append(policies, Policy{Currency: cur, DailyCap: capAmount})
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Currency < policies[j].Currency })
	return policies, nil
}

// PolicyEnforcer tracks today's automatic payout totals against the caps.
type PolicyEnforcer struct {
	mu       sync.Mutex
	policies map[domain.Currency]Policy
	spent    map[domain.Currency]map[string]decimal.Decimal
}

func NewPolicyEnforcer(policies []Policy) (*PolicyEnforcer, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("NewPolicyEnforcer: at least one policy must be configured")
	}
	p := &PolicyEnforcer{
		policies: make(map[domain.Currency]Policy, len(policies)),
		spent:    make(map[domain.Currency]map[string]decimal.Decimal, len(policies)),
	}
	for _, pol := range policies {
		cur := pol.Currency.Normalize()
		if _, dup := p.policies[cur]; dup {
			return nil, fmt.Errorf("NewPolicyEnforcer: duplicate policy for %s", cur)
		}
		pol.Currency = cur
		p.policies[cur] = pol
		p.spent[cur] = make(map[string]decimal.Decimal)
	}
	return p, nil
}

// Reserve claims amount against today's cap. The returned release undoes the
// claim and must be called if the payout does not go through.
func (p *PolicyEnforcer) Reserve(currency domain.Currency, amount decimal.Decimal, now time.Time) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := currency.Normalize()
	pol, ok := p.policies[cur]
	if !ok {
		return nil, fmt.Errorf("Reserve: %s: %w", cur, ErrPolicyNotFound)
	}
	day := dayBucket(now)
	spent := p.spent[cur][day]
	if spent.Add(amount).GreaterThan(pol.DailyCap) {
		return nil, fmt.Errorf("Reserve: %s %s on %s: %w", amount, cur, day, domain.ErrPayoutCapExceeded)
	}
	p.spent[cur][day] = spent.Add(amount)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.spent[cur][day] = p.spent[cur][day].Sub(amount)
		})
	}, nil
}

// RemainingCap reports what can still be paid out today.
func (p *PolicyEnforcer) RemainingCap(currency domain.Currency, now time.Time) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := currency.Normalize()
	pol, ok := p.policies[cur]
	if !ok {
		return decimal.Zero
	}
	remaining := pol.DailyCap.Sub(p.spent[cur][dayBucket(now)])
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func dayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
