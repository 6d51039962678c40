package expense

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// Field names an updatable expense attribute. Values match the JSON and
// document field names.
type Field string

const (
	FieldName           Field = "name"
	FieldVto            Field = "vto"
	FieldFechaPago      Field = "fechaPago"
	FieldImporte        Field = "importe"
	FieldCurrency       Field = "currency"
	FieldPayer          Field = "payer"
	FieldStatus         Field = "status"
	FieldCategory       Field = "category"
	FieldMonth          Field = "month"
	FieldYear           Field = "year"
	FieldOrder          Field = "order"
	FieldComment        Field = "comment"
	FieldDebt           Field = "debt"
	FieldLinkedToCardID Field = "linkedToCardId"
	FieldCardTotalARS   Field = "cardTotalARS"
	FieldCardTotalUSD   Field = "cardTotalUSD"
	FieldCardUSDRate    Field = "cardUSDRate"
	FieldIcon           Field = "icon"
	FieldIconColor      Field = "iconColor"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindDecimal
	kindInt
)

type fieldSpec struct {
	kind      fieldKind
	removable bool
}

var fields = map[Field]fieldSpec{
	FieldName:           {kind: kindString},
	FieldVto:            {kind: kindString},
	FieldFechaPago:      {kind: kindString},
	FieldImporte:        {kind: kindDecimal},
	FieldCurrency:       {kind: kindString},
	FieldPayer:          {kind: kindString},
	FieldStatus:         {kind: kindString},
	FieldCategory:       {kind: kindString},
	FieldMonth:          {kind: kindInt},
	FieldYear:           {kind: kindInt},
	FieldOrder:          {kind: kindInt},
	FieldComment:        {kind: kindString, removable: true},
	FieldDebt:           {kind: kindDecimal, removable: true},
	FieldLinkedToCardID: {kind: kindString, removable: true},
	FieldCardTotalARS:   {kind: kindDecimal, removable: true},
	FieldCardTotalUSD:   {kind: kindDecimal, removable: true},
	FieldCardUSDRate:    {kind: kindDecimal, removable: true},
	FieldIcon:           {kind: kindString, removable: true},
	FieldIconColor:      {kind: kindString, removable: true},
}

// Patch is a field-level update. Set overwrites, Unset removes the field from
// the stored record, anything else is left alone.
type Patch struct {
	Set       map[Field]any
	Unset     []Field
	UpdatedAt time.Time
}

func NewPatch() Patch {
	return Patch{Set: make(map[Field]any)}
}

func (p Patch) With(field Field, value any) Patch {
	if p.Set == nil {
		p.Set = make(map[Field]any)
	}
	p.Set[field] = value
	return p
}

func (p Patch) Without(field Field) Patch {
	p.Unset = append(p.Unset, field)
	return p
}

func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}

// Fields lists every touched field, sorted.
func (p Patch) Fields() []string {
	out := make([]string, 0, len(p.Set)+len(p.Unset))
	for f := range p.Set {
		out = append(out, string(f))
	}
	for _, f := range p.Unset {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// ParsePatch decodes a JSON object into a Patch. A JSON null removes the
// field, which is only allowed for optional fields.
func ParsePatch(raw map[string]json.RawMessage) (Patch, error) {
	p := NewPatch()
	for key, value := range raw {
		field := Field(key)
		rule, ok := fields[field]
		if !ok {
			return Patch{}, errors.NewValidationFieldError(key, fmt.Sprintf("%s cannot be updated", key), errors.ErrCodeInvalidField)
		}

		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			if !rule.removable {
				return Patch{}, errors.NewValidationFieldError(key, fmt.Sprintf("%s cannot be removed", key), errors.ErrCodeInvalidField)
			}
			p.Unset = append(p.Unset, field)
			continue
		}

		var err error
		switch rule.kind {
		case kindString:
			var s string
			err = json.Unmarshal(value, &s)
			p.Set[field] = s
		case kindDecimal:
			var d decimal.Decimal
			err = d.UnmarshalJSON(value)
			p.Set[field] = d
		case kindInt:
			var n int
			err = json.Unmarshal(value, &n)
			p.Set[field] = n
		}
		if err != nil {
			return Patch{}, errors.NewValidationFieldError(key, fmt.Sprintf("%s has the wrong type", key), errors.ErrCodeInvalidField)
		}
	}

	if appErr := p.Validate(); appErr != nil {
		return Patch{}, appErr
	}
	return p, nil
}

// Validate checks value types and domain constraints of every set field.
func (p Patch) Validate() *errors.AppError {
	v := validation.NewValidator()
	for field, value := range p.Set {
		rule, ok := fields[field]
		if !ok {
			return errors.NewValidationFieldError(string(field), fmt.Sprintf("%s cannot be updated", field), errors.ErrCodeInvalidField)
		}
		if !kindMatches(rule.kind, value) {
			return errors.NewValidationFieldError(string(field), fmt.Sprintf("%s has the wrong type", field), errors.ErrCodeInvalidField)
		}

		name := string(field)
		switch field {
		case FieldStatus:
			v.Field(name, value).Custom(validStatus(name))
		case FieldCurrency:
			v.Field(name, value).OneOf(Currencies, errors.ErrCodeInvalidCurrency)
		case FieldMonth:
			v.Field(name, value).Between(1, 12, errors.ErrCodeInvalidMonth)
		case FieldYear:
			v.Field(name, value).Between(1970, 9999, errors.ErrCodeInvalidYear)
		case FieldIconColor:
			v.Field(name, value).HexColor()
		default:
			if rule.kind == kindDecimal {
				places := AmountPlaces
				if field == FieldCardUSDRate {
					places = RatePlaces
				}
				v.Field(name, value).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(places, errors.ErrCodeInvalidAmount)
			}
		}
	}
	for _, field := range p.Unset {
		if rule, ok := fields[field]; !ok || !rule.removable {
			return errors.NewValidationFieldError(string(field), fmt.Sprintf("%s cannot be removed", field), errors.ErrCodeInvalidField)
		}
	}
	return v.Validate()
}

func kindMatches(kind fieldKind, value any) bool {
	switch kind {
	case kindString:
		_, ok := value.(string)
		return ok
	case kindDecimal:
		_, ok := value.(decimal.Decimal)
		return ok
	case kindInt:
		_, ok := value.(int)
		return ok
	}
	return false
}

func validStatus(field string) validation.ValidatorFunc {
	return func(value interface{}) *errors.AppError {
		s, _ := value.(string)
		if !Status(s).Valid() {
			return errors.NewValidationFieldError(field, fmt.Sprintf("%s is not a known status", s), errors.ErrCodeInvalidStatus)
		}
		return nil
	}
}

// Apply writes the patch onto e the way a store would.
func (p Patch) Apply(e *Expense) {
	for field, value := range p.Set {
		switch field {
		case FieldName:
			e.Name = value.(string)
		case FieldVto:
			e.Vto = value.(string)
		case FieldFechaPago:
			e.FechaPago = value.(string)
		case FieldImporte:
			e.Importe = value.(decimal.Decimal)
		case FieldCurrency:
			e.Currency = value.(string)
		case FieldPayer:
			e.Payer = value.(string)
		case FieldStatus:
			e.Status = Status(value.(string))
		case FieldCategory:
			e.Category = value.(string)
		case FieldMonth:
			e.Month = value.(int)
		case FieldYear:
			e.Year = value.(int)
		case FieldOrder:
			e.Order = value.(int)
		case FieldComment:
			e.Comment = stringPtr(value.(string))
		case FieldDebt:
			e.Debt = decimalPtr(value.(decimal.Decimal))
		case FieldLinkedToCardID:
			e.LinkedToCardID = stringPtr(value.(string))
		case FieldCardTotalARS:
			e.CardTotalARS = decimalPtr(value.(decimal.Decimal))
		case FieldCardTotalUSD:
			e.CardTotalUSD = decimalPtr(value.(decimal.Decimal))
		case FieldCardUSDRate:
			e.CardUSDRate = decimalPtr(value.(decimal.Decimal))
		case FieldIcon:
			e.Icon = stringPtr(value.(string))
		case FieldIconColor:
			e.IconColor = stringPtr(value.(string))
		}
	}
	for _, field := range p.Unset {
		switch field {
		case FieldComment:
			e.Comment = nil
		case FieldDebt:
			e.Debt = nil
		case FieldLinkedToCardID:
			e.LinkedToCardID = nil
		case FieldCardTotalARS:
			e.CardTotalARS = nil
		case FieldCardTotalUSD:
			e.CardTotalUSD = nil
		case FieldCardUSDRate:
			e.CardUSDRate = nil
		case FieldIcon:
			e.Icon = nil
		case FieldIconColor:
			e.IconColor = nil
		}
	}
	if !p.UpdatedAt.IsZero() {
		e.UpdatedAt = p.UpdatedAt
	}
}

// Touches reports whether the patch sets or removes field.
func (p Patch) Touches(field Field) bool {
	if _, ok := p.Set[field]; ok {
		return true
	}
	return slices.Contains(p.Unset, field)
}

func stringPtr(s string) *string {
	return &s
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
