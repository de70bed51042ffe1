// Package seed loads a tenant's chart of accounts, periods, tax rules and
// retention policies from a YAML file.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// ErrInvalidFile is returned when a seed file fails validation
var ErrInvalidFile = errors.New("seed: invalid file")

// File is the root of a seed document
type File struct {
	Accounts          []AccountSeed `yaml:"accounts"`
	Periods           []PeriodSeed  `yaml:"periods,omitempty"`
	TaxRules          []TaxRuleSeed `yaml:"tax_rules,omitempty"`
	RetentionPolicies []PolicySeed  `yaml:"retention_policies,omitempty"`
}

// AccountSeed is one chart of accounts entry. Parent refers to another
// entry's code and may appear later in the file.
type AccountSeed struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	SubType     string `yaml:"sub_type,omitempty"`
	Parent      string `yaml:"parent,omitempty"`
	Currency    string `yaml:"currency,omitempty"`
	CashFlow    string `yaml:"cash_flow,omitempty"`
	System      bool   `yaml:"system,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// PeriodSeed is one accounting period; dates are YYYY-MM-DD
type PeriodSeed struct {
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// TaxRuleSeed is a tax rule whose payable account is given by code
type TaxRuleSeed struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name,omitempty"`
	Rate    string `yaml:"rate"`
	Payable string `yaml:"payable"`
}

// PolicySeed is a retention policy
type PolicySeed struct {
	Name          string            `yaml:"name"`
	Table         string            `yaml:"table"`
	Category      string            `yaml:"category,omitempty"`
	RetentionDays int               `yaml:"retention_days"`
	Action        string            `yaml:"action"`
	Conditions    map[string]string `yaml:"conditions,omitempty"`
	IntervalHours int               `yaml:"interval_hours,omitempty"`
}

// ReadFile parses and validates the seed file at path
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks references inside the file. Business rules such as
// account type compatibility are left to the services that load it.
func (f *File) Validate() error {
	codes := make(map[string]struct{}, len(f.Accounts))
	for i, a := range f.Accounts {
		if strings.TrimSpace(a.Code) == "" || strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("%w: account %d needs a code and a name", ErrInvalidFile, i+1)
		}
		if _, dup := codes[a.Code]; dup {
			return fmt.Errorf("%w: account code %q appears twice", ErrInvalidFile, a.Code)
		}
		codes[a.Code] = struct{}{}
	}
	for _, a := range f.Accounts {
		if a.Parent == "" {
			continue
		}
		if _, ok := codes[a.Parent]; !ok {
			return fmt.Errorf("%w: account %q has unknown parent %q", ErrInvalidFile, a.Code, a.Parent)
		}
	}
	if _, err := f.AccountOrder(); err != nil {
		return err
	}

	for _, p := range f.Periods {
		if _, _, err := p.Dates(); err != nil {
			return fmt.Errorf("%w: period %q: %v", ErrInvalidFile, p.Label, err)
		}
	}
	for _, t := range f.TaxRules {
		if _, err := decimal.NewFromString(t.Rate); err != nil {
			return fmt.Errorf("%w: tax rule %q has rate %q", ErrInvalidFile, t.Code, t.Rate)
		}
	}
	for _, p := range f.RetentionPolicies {
		if p.Name == "" || p.Table == "" {
			return fmt.Errorf("%w: retention policy needs a name and a table", ErrInvalidFile)
		}
	}
	return nil
}

// AccountOrder returns the accounts with every parent before its children
func (f *File) AccountOrder() ([]AccountSeed, error) {
	ordered := make([]AccountSeed, 0, len(f.Accounts))
	placed := make(map[string]bool, len(f.Accounts))
	pending := f.Accounts
	for len(pending) > 0 {
		var next []AccountSeed
		for _, a := range pending {
			if a.Parent == "" || placed[a.Parent] {
				ordered = append(ordered, a)
				placed[a.Code] = true
				continue
			}
			next = append(next, a)
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("%w: account hierarchy has a cycle at %q", ErrInvalidFile, next[0].Code)
		}
		pending = next
	}
	return ordered, nil
}

// Dates parses the period boundaries
func (p PeriodSeed) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, p.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(dateLayout, p.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
