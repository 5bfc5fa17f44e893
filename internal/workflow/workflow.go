// Package workflow is the single source of the per-type case workflows: the ordered stages,
// the document checklist, the gates attached to stages and the public checkout programs.
package workflow

import (
	_ "embed"
	"fmt"

	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/paygateway"
	"gopkg.in/yaml.v3"
)

//go:embed workflow.yaml
var tableYAML []byte

type GateKind string

const (
	GatePayment     GateKind = "PAYMENT"
	GateAppointment GateKind = "APPOINTMENT"
)

// Gate is an action the client must complete while its stage is CURRENT.
// PAYMENT gates carry Amount/Currency, APPOINTMENT gates carry AppointmentTypes.
type Gate struct {
	Kind             GateKind                `yaml:"kind" json:"kind"`
	Amount           string                  `yaml:"amount,omitempty" json:"amount,omitempty"`
	Currency         string                  `yaml:"currency,omitempty" json:"currency,omitempty"`
	AppointmentTypes []model.AppointmentType `yaml:"appointmentTypes,omitempty" json:"appointmentTypes,omitempty"`
}

// AmountMinor is the gate amount in cents.
func (g Gate) AmountMinor() (int64, error) {
	return paygateway.ParseAmount(g.Amount)
}

type StageDescriptor struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Gate        *Gate  `yaml:"gate,omitempty" json:"gate,omitempty"`
}

type ChecklistDescriptor struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Required bool   `yaml:"required" json:"required"`
}

type Definition struct {
	Type        model.TicketType      `yaml:"-" json:"type"`
	Label       string                `yaml:"label" json:"label"`
	Description string                `yaml:"description" json:"description"`
	Stages      []StageDescriptor     `yaml:"stages" json:"stages"`
	Checklist   []ChecklistDescriptor `yaml:"checklist" json:"checklist"`
}

// Stage returns the descriptor for id.
func (d Definition) Stage(id string) (StageDescriptor, bool) {
	for _, s := range d.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return StageDescriptor{}, false
}

// Program is a package sold through the public checkout.
type Program struct {
	ID         string           `yaml:"id" json:"id"`
	Label      string           `yaml:"label" json:"label"`
	BasePrice  float64          `yaml:"basePrice" json:"basePrice"`
	Currency   string           `yaml:"currency" json:"currency"`
	TicketType model.TicketType `yaml:"ticketType" json:"ticketType"`
}

// Total is the base price times the number of family members.
func (p Program) Total(adults, children int) float64 {
	return p.BasePrice * float64(adults+children)
}

type Table struct {
	fallback model.TicketType
	types    map[model.TicketType]Definition
	programs []Program
}

type tableFile struct {
	Fallback model.TicketType                `yaml:"fallback"`
	Types    map[model.TicketType]Definition `yaml:"types"`
	Programs []Program                       `yaml:"programs"`
}

// Parse decodes and validates a workflow table.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("workflow: parse: %w", err)
	}
	if _, ok := f.Types[f.Fallback]; !ok {
		return nil, fmt.Errorf("workflow: fallback type %q is not defined", f.Fallback)
	}
	t := &Table{fallback: f.Fallback, types: make(map[model.TicketType]Definition, len(f.Types))}
	for tt, def := range f.Types {
		if err := validateDefinition(tt, def); err != nil {
			return nil, err
		}
		def.Type = tt
		if def.Checklist == nil {
			def.Checklist = []ChecklistDescriptor{}
		}
		t.types[tt] = def
	}
	seen := make(map[string]bool, len(f.Programs))
	for _, p := range f.Programs {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("workflow: program id %q is empty or duplicated", p.ID)
		}
		seen[p.ID] = true
		if _, ok := t.types[p.TicketType]; !ok {
			return nil, fmt.Errorf("workflow: program %s targets unknown type %q", p.ID, p.TicketType)
		}
		if p.BasePrice <= 0 {
			return nil, fmt.Errorf("workflow: program %s has no base price", p.ID)
		}
	}
	t.programs = f.Programs
	return t, nil
}

func validateDefinition(tt model.TicketType, def Definition) error {
	if len(def.Stages) == 0 {
		return fmt.Errorf("workflow: type %s has no stages", tt)
	}
	ids := make(map[string]bool, len(def.Stages))
	for _, s := range def.Stages {
		if s.ID == "" || ids[s.ID] {
			return fmt.Errorf("workflow: type %s: stage id %q is empty or duplicated", tt, s.ID)
		}
		ids[s.ID] = true
		if s.Gate == nil {
			continue
		}
		switch s.Gate.Kind {
		case GatePayment:
			amount, err := s.Gate.AmountMinor()
			if err != nil || amount <= 0 || s.Gate.Currency == "" {
				return fmt.Errorf("workflow: type %s: stage %s: payment gate needs a positive amount and a currency", tt, s.ID)
			}
		case GateAppointment:
			if len(s.Gate.AppointmentTypes) == 0 {
				return fmt.Errorf("workflow: type %s: stage %s: appointment gate lists no appointment types", tt, s.ID)
			}
		default:
			return fmt.Errorf("workflow: type %s: stage %s: unknown gate kind %q", tt, s.ID, s.Gate.Kind)
		}
	}
	return nil
}

var defaultTable = mustParse(tableYAML)

func mustParse(data []byte) *Table {
	t, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the embedded table.
func Default() *Table {
	return defaultTable
}

// Lookup returns the definition for tt, or the fallback definition when tt is unknown.
func (t *Table) Lookup(tt model.TicketType) Definition {
	if def, ok := t.types[tt]; ok {
		return def
	}
	return t.types[t.fallback]
}

// Known reports whether tt has its own definition.
func (t *Table) Known(tt model.TicketType) bool {
	_, ok := t.types[tt]
	return ok
}

// Definitions lists every definition in model.TicketTypes order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, 0, len(t.types))
	for _, tt := range model.TicketTypes {
		if def, ok := t.types[tt]; ok {
			out = append(out, def)
		}
	}
	return out
}

func (t *Table) Programs() []Program {
	return append([]Program(nil), t.programs...)
}

func (t *Table) Program(id string) (Program, bool) {
	for _, p := range t.programs {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}

func (t *Table) ProgramByLabel(label string) (Program, bool) {
	for _, p := range t.programs {
		if p.Label == label {
			return p, true
		}
	}
	return Program{}, false
}

// Seed builds the initial metadata for a new ticket of type tt.
func (t *Table) Seed(tt model.TicketType) Metadata {
	def := t.Lookup(tt)
	md := Metadata{
		Stages:    make([]Stage, len(def.Stages)),
		Checklist: make([]ChecklistItem, len(def.Checklist)),
	}
	for i, s := range def.Stages {
		status := StagePending
		if i == 0 {
			status = StageCurrent
		}
		md.Stages[i] = Stage{ID: s.ID, Label: s.Label, Status: status, Description: s.Description}
	}
	for i, c := range def.Checklist {
		md.Checklist[i] = ChecklistItem{ID: c.ID, Label: c.Label, Required: c.Required, Status: ChecklistPending}
	}
	return md
}

// ActiveGate returns the gate of the CURRENT stage in md, if that stage has one.
func (t *Table) ActiveGate(tt model.TicketType, md Metadata) (StageDescriptor, bool) {
	cur, ok := md.CurrentStage()
	if !ok {
		return StageDescriptor{}, false
	}
	desc, ok := t.Lookup(tt).Stage(cur.ID)
	if !ok || desc.Gate == nil {
		return StageDescriptor{}, false
	}
	return desc, true
}
