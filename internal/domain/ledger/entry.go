package ledger

import (
	"strings"
	"time"

	"github.com/erp/posledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind is the closed set of stock movement kinds the ledger accepts
type EntryKind string

const (
	// KindStockIn is inbound stock: purchase receiving, opening stock, sale reversal
	KindStockIn EntryKind = "STOCK_IN"
	// KindSale is stock leaving through a point-of-sale checkout
	KindSale EntryKind = "SALE"
	// KindReturn is stock coming back through a customer return
	KindReturn EntryKind = "RETURN"
	// KindVoidedSale is stock credited back when an open sale line shrinks
	KindVoidedSale EntryKind = "VOIDED_SALE"
	// KindBadOrder is a damaged/expired write-off
	KindBadOrder EntryKind = "BAD_ORDER"
	// KindAdjustment is a manual correction; the caller states the direction
	KindAdjustment EntryKind = "ADJUSTMENT"
	// KindTransfer is a movement between locations; the caller states the direction
	KindTransfer EntryKind = "TRANSFER"
)

type signRule int

const (
	signCredit signRule = iota + 1
	signDebit
	signCaller
)

// kindSigns is the sign convention for every kind. Credit and debit kinds
// ignore the sign the caller passes; caller kinds keep it verbatim.
var kindSigns = map[EntryKind]signRule{
	KindStockIn:    signCredit,
	KindReturn:     signCredit,
	KindVoidedSale: signCredit,
	KindSale:       signDebit,
	KindBadOrder:   signDebit,
	KindAdjustment: signCaller,
	KindTransfer:   signCaller,
}

// String returns the string representation of EntryKind
func (k EntryKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is one of the known kinds
func (k EntryKind) IsValid() bool {
	_, ok := kindSigns[k]
	return ok
}

// IsCredit returns true if the kind always increases stock
func (k EntryKind) IsCredit() bool {
	return kindSigns[k] == signCredit
}

// IsDebit returns true if the kind always decreases stock
func (k EntryKind) IsDebit() bool {
	return kindSigns[k] == signDebit
}

// CallerSigned returns true if the caller decides the direction
func (k EntryKind) CallerSigned() bool {
	return kindSigns[k] == signCaller
}

// SignedQuantity applies the sign convention of the kind to qty
func (k EntryKind) SignedQuantity(qty decimal.Decimal) (decimal.Decimal, error) {
	rule, ok := kindSigns[k]
	if !ok {
		return decimal.Zero, shared.InvalidInput("unknown ledger entry kind %q", k)
	}
	if qty.IsZero() {
		return decimal.Zero, shared.InvalidInput("ledger entry quantity cannot be zero")
	}
	switch rule {
	case signCredit:
		return qty.Abs(), nil
	case signDebit:
		return qty.Abs().Neg(), nil
	default:
		return qty, nil
	}
}

// ParseEntryKind converts a string to an EntryKind
func ParseEntryKind(s string) (EntryKind, error) {
	k := EntryKind(s)
	if !k.IsValid() {
		return "", shared.InvalidInput("unknown ledger entry kind %q", s)
	}
	return k, nil
}

// ReferenceType names the workflow record an entry originates from
type ReferenceType string

const (
	ReferenceNone          ReferenceType = ""
	ReferenceOpening       ReferenceType = "OPENING"
	ReferenceSale          ReferenceType = "SALE"
	ReferencePurchaseOrder ReferenceType = "PURCHASE_ORDER"
	ReferenceReceipt       ReferenceType = "RECEIPT"
	ReferenceReturn        ReferenceType = "RETURN"
	ReferenceManual        ReferenceType = "MANUAL"
)

var referenceTypes = map[ReferenceType]struct{}{
	ReferenceOpening:       {},
	ReferenceSale:          {},
	ReferencePurchaseOrder: {},
	ReferenceReceipt:       {},
	ReferenceReturn:        {},
	ReferenceManual:        {},
}

// ParseReferenceType parses a reference type name. The empty type is not
// accepted since it names no record.
func ParseReferenceType(s string) (ReferenceType, error) {
	t := ReferenceType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := referenceTypes[t]; !ok {
		return "", shared.InvalidInput("unknown reference type %q", s)
	}
	return t, nil
}

// Reference carries everything about an append besides product, quantity and kind
type Reference struct {
	Type     ReferenceType
	ID       string
	Text     string // free-text reference, e.g. a document number
	Remarks  string
	ActorID  *uuid.UUID
	UnitCost decimal.NullDecimal
}

// Entry is one immutable, signed stock movement. Corrections are made by
// appending a compensating entry, never by editing or deleting a row.
type Entry struct {
	Seq           int64               `gorm:"primaryKey;autoIncrement"`
	ID            uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	ProductID     uuid.UUID           `gorm:"type:uuid;not null;index:idx_ledger_product_seq,priority:1"`
	Kind          EntryKind           `gorm:"type:varchar(20);not null;index"`
	Quantity      decimal.Decimal     `gorm:"type:decimal(18,4);not null"` // signed: positive inbound, negative outbound
	UnitCost      decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	BalanceAfter  decimal.Decimal     `gorm:"type:decimal(18,4);not null"` // product on-hand right after this entry
	Reference     string              `gorm:"type:varchar(100)"`
	Remarks       string              `gorm:"type:varchar(255)"`
	ReferenceType ReferenceType       `gorm:"type:varchar(30);index:idx_ledger_reference,priority:1"`
	ReferenceID   string              `gorm:"type:varchar(50);index:idx_ledger_reference,priority:2"`
	ActorID       *uuid.UUID          `gorm:"type:uuid"`
	CreatedAt     time.Time           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "ledger_entries"
}

// NewEntry builds an entry for productID, applying the kind's sign convention to qty
func NewEntry(productID uuid.UUID, kind EntryKind, qty decimal.Decimal, ref Reference) (*Entry, error) {
	if productID == uuid.Nil {
		return nil, shared.InvalidInput("product ID cannot be empty")
	}
	signed, err := kind.SignedQuantity(qty)
	if err != nil {
		return nil, err
	}
	if ref.UnitCost.Valid && ref.UnitCost.Decimal.IsNegative() {
		return nil, shared.InvalidInput("unit cost cannot be negative")
	}
	return &Entry{
		ID:            uuid.New(),
		ProductID:     productID,
		Kind:          kind,
		Quantity:      signed,
		UnitCost:      ref.UnitCost,
		Reference:     ref.Text,
		Remarks:       ref.Remarks,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		ActorID:       ref.ActorID,
		CreatedAt:     time.Now(),
	}, nil
}

// IsInbound returns true if the entry added stock
func (e *Entry) IsInbound() bool {
	return e.Quantity.IsPositive()
}

// IsOutbound returns true if the entry removed stock
func (e *Entry) IsOutbound() bool {
	return e.Quantity.IsNegative()
}

// HistoryFilter narrows a ledger history query. Zero values mean "no constraint".
type HistoryFilter struct {
	Kinds         []EntryKind
	ReferenceType ReferenceType
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}
