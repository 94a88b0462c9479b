package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
)

type PurchaseOrders []PurchaseOrder

// PurchaseOrder is an ERP contract with an auditor firm. Rows arrive via sync
// only; nothing in the engine mutates them outside ingest.
type PurchaseOrder struct {
	ID                uuid.UUID  `db:"id"`
	OrderNumber       string     `db:"order_number" validate:"required"`
	AuditorFirmID     uuid.UUID  `db:"auditor_firm_id" validate:"required"`
	ContractStartDate nulls.Time `db:"contract_start_date"`
	ContractEndDate   nulls.Time `db:"contract_end_date"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`

	Items POItems `has_many:"po_items" validate:"-"`
}

type POItems []POItem

// POItem is one line of a purchase order, referenced by engagements
type POItem struct {
	ID              uuid.UUID `db:"id"`
	PurchaseOrderID uuid.UUID `db:"purchase_order_id" validate:"required"`
	Number          string    `db:"number" validate:"required"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (p *PurchaseOrder) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(p), nil
}

func (p *POItem) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(p), nil
}

func (p *PurchaseOrder) Create(tx *pop.Connection) error {
	return create(tx, p)
}

func (p *PurchaseOrder) Update(tx *pop.Connection) error {
	return update(tx, p)
}

func (p *PurchaseOrder) GetID() uuid.UUID {
	return p.ID
}

func (p *PurchaseOrder) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, p, id)
}

func (p *PurchaseOrder) FindByOrderNumber(tx *pop.Connection, orderNumber string) error {
	err := tx.Where("order_number = ?", orderNumber).First(p)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// LoadItems hydrates the Items relation unless already loaded
func (p *PurchaseOrder) LoadItems(tx *pop.Connection, reload bool) {
	if len(p.Items) == 0 || reload {
		if err := tx.Where("purchase_order_id = ?", p.ID).Order("number asc").All(&p.Items); err != nil {
			panic("database error loading purchase order items, " + err.Error())
		}
	}
}

func (i *POItem) Create(tx *pop.Connection) error {
	return create(tx, i)
}

func (i *POItem) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, i, id)
}
