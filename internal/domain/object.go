package domain

import "time"

// Kind names an object class of the external store. It doubles as the
// collection segment under which children of that kind are addressed.
type Kind string

const (
	KindActivity   Kind = "activity"
	KindResource   Kind = "resource"
	KindTracker    Kind = "activityTracker"
	KindAssignment Kind = "assignedResource"
	KindWorkRecord Kind = "workRecord"
)

// Work record types. Only user-defined records are managed by the adapter.
const (
	RecordTypeStandard    int16 = 1
	RecordTypeUserDefined int16 = 99
)

// Object is the store-side representation shared by every kind. Fields that
// do not apply to a kind stay at their zero value.
type Object struct {
	Path          Path
	Kind          Kind
	Name          string
	Disabled      bool
	RecordType    int16
	Billable      bool
	StartedAt     *time.Time
	Quantity      *float64
	RateCurrency  int16
	DepotSelector int16
	UserString0   string
	ResourceRef   Path // work record, assignment -> resource
	GroupRef      Path // activity -> customer project group (tracker)
	CreatedAt     time.Time
	CreatedBy     string
	ModifiedAt    time.Time
	ModifiedBy    string
}

// Fields is a partial update. Nil members are left untouched.
type Fields struct {
	Name        *string
	Disabled    *bool
	Billable    *bool
	StartedAt   *time.Time
	Quantity    *float64
	UserString0 *string
}

// Apply copies the set members onto o.
func (f Fields) Apply(o *Object) {
	if f.Name != nil {
		o.Name = *f.Name
	}
	if f.Disabled != nil {
		o.Disabled = *f.Disabled
	}
	if f.Billable != nil {
		o.Billable = *f.Billable
	}
	if f.StartedAt != nil {
		t := f.StartedAt.UTC()
		o.StartedAt = &t
	}
	if f.Quantity != nil {
		q := *f.Quantity
		o.Quantity = &q
	}
	if f.UserString0 != nil {
		o.UserString0 = *f.UserString0
	}
}

// Query selects objects by simple equality predicates. Zero-valued members
// do not constrain the result. Results come back in store order.
type Query struct {
	Kind        Kind
	Under       Path // any depth below
	Parent      Path // direct children only
	RecordType  *int16
	Disabled    *bool
	ResourceRef Path
	Offset      int
	Limit       int // 0 means no limit
}

// Matches evaluates the predicates (not Offset/Limit) against o.
func (q Query) Matches(o Object) bool {
	if q.Kind != "" && o.Kind != q.Kind {
		return false
	}
	if !q.Under.IsZero() && !o.Path.HasPrefix(q.Under) {
		return false
	}
	if !q.Parent.IsZero() && !o.Path.Parent().Equal(q.Parent) {
		return false
	}
	if q.RecordType != nil && o.RecordType != *q.RecordType {
		return false
	}
	if q.Disabled != nil && o.Disabled != *q.Disabled {
		return false
	}
	if !q.ResourceRef.IsZero() && !o.ResourceRef.Equal(q.ResourceRef) {
		return false
	}
	return true
}
