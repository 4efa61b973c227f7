package main

import (
	"encoding/json"
	"fmt"

	"go-automation/internal/features/campaign"
	"go-automation/internal/features/email_template"
	"go-automation/internal/features/facts"
	"go-automation/internal/features/rule"
	"go-automation/pkg/validation"

	"github.com/pelletier/go-toml/v2"
)

// Definitions is the content of a seed file.
type Definitions struct {
	Templates []email_template.EmailTemplate
	Rules     []rule.AutomationRule
	Campaigns []campaign.Campaign
	Contacts  []facts.Contact
}

type rawDefinitions struct {
	Templates []map[string]interface{} `toml:"templates"`
	Rules     []map[string]interface{} `toml:"rules"`
	Campaigns []map[string]interface{} `toml:"campaigns"`
	Contacts  []map[string]interface{} `toml:"contacts"`
}

// ParseDefinitions decodes a TOML seed file. Tables go through JSON so the
// engine's own decoders pick step and action payloads by type.
func ParseDefinitions(body []byte) (*Definitions, error) {
	var raw rawDefinitions
	if err := toml.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	defs := &Definitions{}
	if err := convert("templates", raw.Templates, &defs.Templates); err != nil {
		return nil, err
	}
	if err := convert("rules", raw.Rules, &defs.Rules); err != nil {
		return nil, err
	}
	if err := convert("campaigns", raw.Campaigns, &defs.Campaigns); err != nil {
		return nil, err
	}
	if err := convert("contacts", raw.Contacts, &defs.Contacts); err != nil {
		return nil, err
	}
	return defs, defs.Validate()
}

func convert(section string, tables []map[string]interface{}, dst interface{}) error {
	if tables == nil {
		tables = []map[string]interface{}{}
	}
	b, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("encode %s: %w", section, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", section, err)
	}
	return nil
}

func (d *Definitions) Validate() error {
	for _, t := range d.Templates {
		if t.TemplateID == "" {
			return validation.Missing("template", t.Name, "id")
		}
		if t.Name == "" {
			return validation.Missing("template", t.TemplateID, "name")
		}
	}
	for _, r := range d.Rules {
		if r.ID == "" {
			return validation.Missing("rule", r.Name, "id")
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Campaigns {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Contacts {
		if c.RecipientID == "" {
			return validation.Missing("contact", c.Email, "recipientId")
		}
	}
	return nil
}
