package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/fin"
)

type Activities []Activity

// Activity is coded like "1.1.1" and splits its cash across the funding
// streams. With items present the split is recomputed from them, never
// trusted as input.
type Activity struct {
	ID            uuid.UUID       `db:"id"`
	LowerResultID uuid.UUID       `db:"lower_result_id" validate:"required"`
	OriginID      nulls.UUID      `db:"origin_id"`
	Code          string          `db:"code"`
	Ordinal       int             `db:"ordinal"`
	Name          string          `db:"name" validate:"required"`
	UnicefCash    decimal.Decimal `db:"unicef_cash"`
	CSOCash       decimal.Decimal `db:"cso_cash"`
	UnfundedCash  decimal.Decimal `db:"unfunded_cash"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`

	Items ActivityItems `has_many:"activity_items" validate:"-"`
}

func (a *Activity) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(a), nil
}

func (a *Activity) GetID() uuid.UUID {
	return a.ID
}

func (a *Activity) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, a, id)
}

// LoadItems hydrates the Items relation unless already loaded
func (a *Activity) LoadItems(tx *pop.Connection, reload bool) {
	if len(a.Items) == 0 || reload {
		if err := tx.Where("activity_id = ?", a.ID).Order("ordinal asc").All(&a.Items); err != nil {
			panic("database error loading activity items, " + err.Error())
		}
	}
}

// interventionID walks up the tree to the owning intervention
func (a *Activity) interventionID(tx *pop.Connection) uuid.UUID {
	var lr LowerResult
	if err := lr.FindByID(tx, a.LowerResultID); err != nil {
		panic("database error loading lower result, " + err.Error())
	}
	var link ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		panic("database error loading result link, " + err.Error())
	}
	return link.InterventionID
}

// RecomputeFromItems sets the activity's cash split from its items. Without
// items the stored split stands. Returns the effective split either way.
func (a *Activity) RecomputeFromItems(tx *pop.Connection) (fin.Streams, error) {
	a.LoadItems(tx, true)
	if len(a.Items) == 0 {
		return a.streams(), nil
	}

	var total fin.Streams
	for _, item := range a.Items {
		total = total.Add(fin.Streams{
			Unicef:   item.UnicefCash,
			CSO:      item.CSOCash,
			Unfunded: item.UnfundedCash,
		})
	}

	a.UnicefCash = fin.Round(total.Unicef)
	a.CSOCash = fin.Round(total.CSO)
	a.UnfundedCash = fin.Round(total.Unfunded)
	if err := update(tx, a); err != nil {
		return fin.Streams{}, err
	}
	return a.streams(), nil
}

func (a *Activity) streams() fin.Streams {
	return fin.Streams{Unicef: a.UnicefCash, CSO: a.CSOCash, Unfunded: a.UnfundedCash}
}

// timeFrameQuarters returns the quarter indexes this activity selected
func (a *Activity) timeFrameQuarters(tx *pop.Connection) []int {
	var rows []struct {
		Quarter int `db:"quarter"`
	}
	err := tx.RawQuery(
		"SELECT tf.quarter FROM time_frames tf JOIN activity_time_frames atf ON atf.time_frame_id = tf.id "+
			"WHERE atf.activity_id = ? ORDER BY tf.quarter", a.ID).All(&rows)
	if err != nil {
		panic("database error loading activity time frames, " + err.Error())
	}
	quarters := make([]int, len(rows))
	for i, row := range rows {
		quarters[i] = row.Quarter
	}
	return quarters
}

// ConvertToAPI converts the activity and its items for the wire
func (a *Activity) ConvertToAPI(tx *pop.Connection) api.InterventionActivity {
	a.LoadItems(tx, false)
	items := make([]api.ActivityItem, len(a.Items))
	for i, item := range a.Items {
		items[i] = item.ConvertToAPI()
	}
	return api.InterventionActivity{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		UnicefCash:   a.UnicefCash,
		CSOCash:      a.CSOCash,
		UnfundedCash: a.UnfundedCash,
		IsActive:     a.IsActive,
		TimeFrames:   a.timeFrameQuarters(tx),
		Items:        items,
	}
}
