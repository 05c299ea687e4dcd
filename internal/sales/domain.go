package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentMobile PaymentMethod = "MOBILE"
)

// Status enumerates transaction lifecycle states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusVoided    Status = "VOIDED"
	StatusRefunded  Status = "REFUNDED"
)

var (
	errBlankTransactionID = errors.New("sales: transaction id cannot be blank")
	errNoItems            = errors.New("sales: transaction must have at least one item")
	errNegativeTotal      = errors.New("sales: total amount cannot be negative")
	errBadItem            = errors.New("sales: item requires product id and positive quantity")
)

// Item is one immutable transaction line.
type Item struct {
	productID string
	quantity  int
	unitPrice decimal.Decimal
}

// NewItem validates and constructs an Item.
func NewItem(productID string, quantity int, unitPrice decimal.Decimal) (Item, error) {
	if productID == "" || quantity <= 0 || unitPrice.IsNegative() {
		return Item{}, errBadItem
	}
	return Item{productID: productID, quantity: quantity, unitPrice: unitPrice}, nil
}

func (i Item) ProductID() string          { return i.productID }
func (i Item) Quantity() int              { return i.quantity }
func (i Item) UnitPrice() decimal.Decimal { return i.unitPrice }

// LineTotal returns quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}

// Transaction is an immutable sale record. Construct through
// NewTransaction, which validates the invariants once; there are no
// mutators.
type Transaction struct {
	id             string
	customerID     string
	employeeID     string
	timestamp      time.Time
	items          []Item
	subtotal       decimal.Decimal
	taxAmount      decimal.Decimal
	discountAmount decimal.Decimal
	totalAmount    decimal.Decimal
	paymentMethod  PaymentMethod
	status         Status
}

// NewTransaction validates and constructs a Transaction. The item
// slice is copied.
func NewTransaction(id, customerID, employeeID string, ts time.Time, items []Item, subtotal, tax, discount, total decimal.Decimal, method PaymentMethod, status Status) (Transaction, error) {
	if id == "" {
		return Transaction{}, errBlankTransactionID
	}
	if len(items) == 0 {
		return Transaction{}, errNoItems
	}
	if total.IsNegative() {
		return Transaction{}, errNegativeTotal
	}
	copied := make([]Item, len(items))
	copy(copied, items)
	return Transaction{
		id:             id,
		customerID:     customerID,
		employeeID:     employeeID,
		timestamp:      ts,
		items:          copied,
		subtotal:       subtotal,
		taxAmount:      tax,
		discountAmount: discount,
		totalAmount:    total,
		paymentMethod:  method,
		status:         status,
	}, nil
}

func (t Transaction) ID() string                      { return t.id }
func (t Transaction) CustomerID() string              { return t.customerID }
func (t Transaction) EmployeeID() string              { return t.employeeID }
func (t Transaction) Timestamp() time.Time            { return t.timestamp }
func (t Transaction) Subtotal() decimal.Decimal       { return t.subtotal }
func (t Transaction) TaxAmount() decimal.Decimal      { return t.taxAmount }
func (t Transaction) DiscountAmount() decimal.Decimal { return t.discountAmount }
func (t Transaction) TotalAmount() decimal.Decimal    { return t.totalAmount }
func (t Transaction) PaymentMethod() PaymentMethod    { return t.paymentMethod }
func (t Transaction) Status() Status                  { return t.status }

// Items returns a fresh copy of the line items.
func (t Transaction) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// IsCompleted reports whether the transaction reached COMPLETED.
func (t Transaction) IsCompleted() bool { return t.status == StatusCompleted }

// TotalQuantity sums the quantities of all items.
func (t Transaction) TotalQuantity() int {
	n := 0
	for _, item := range t.items {
		n += item.quantity
	}
	return n
}
